// app/bootstrap.go
package app

import (
	"context"
	"errors"
	"log"
	"log/slog"

	"borrow_analytics/engine"
)

// BootstrapRecords 启动时从数据库恢复记录集；持久化数据损坏则拒绝启动
func BootstrapRecords(ctx context.Context, eng *engine.Engine, logger *slog.Logger) {
	info, err := eng.Restore(ctx)
	if errors.Is(err, engine.ErrCorruptSnapshot) {
		log.Fatalf("[BOOTSTRAP] %v", err)
	}
	if err != nil {
		logger.Warn("bootstrap restore failed; starting empty", slog.Any("err", err))
		return
	}
	logger.Info("bootstrap", slog.Uint64("version", info.Version), slog.Int("records", info.Records))
}
