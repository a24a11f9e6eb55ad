package draft

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Execute отправляет все операции конкурентно и ждет завершения каждой.
// limit > 0 ограничивает число одновременных запросов.
// Возвращает первую ошибку; уже примененные записи не откатываются,
// остальные операции батча не отменяются.
func Execute(ctx context.Context, w Writer, ops []Op, limit int) error {
	if len(ops) == 0 {
		return nil
	}
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, op := range ops {
		op := op
		g.Go(func() error {
			if err := w.Apply(ctx, op); err != nil {
				return fmt.Errorf("%s %s: %w", op.Kind, op.Target(), err)
			}
			return nil
		})
	}
	return g.Wait()
}
