package safe

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/secmon-lab/riskledger/pkg/utils/logging"
)

// Close closes closer and logs a failure with the closer's type. A nil
// closer is ignored, so deferred calls need no guard.
func Close(ctx context.Context, closer io.Closer) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.From(ctx).Error("Failed to close",
			slog.String("resource", fmt.Sprintf("%T", closer)),
			slog.Any("error", err),
		)
	}
}
