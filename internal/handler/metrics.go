package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "console_login_attempts_total",
		Help: "Total number of console login attempts, by outcome.",
	}, []string{"outcome"})
	logoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "console_logouts_total",
		Help: "Total number of console sign-outs.",
	})
	panelBusyTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "console_panel_busy_rejections_total",
		Help: "Total number of writes rejected because the panel was busy.",
	}, []string{"panel"})
)

const (
	loginOK          = "ok"
	loginRejected    = "rejected"
	loginError       = "error"
	loginRateLimited = "rate_limited"
)
