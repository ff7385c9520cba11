package bot

import (
	"errors"

	"github.com/hrygo/summy/ai/extract"
	"github.com/hrygo/summy/ai/summary"
	"github.com/hrygo/summy/plugin/chat_apps/channels"
	"github.com/hrygo/summy/store"
)

// userMessage converts a pipeline failure into the reply shown to the user.
func userMessage(err error) string {
	var (
		validationErr *store.ValidationError
		extractErr    *extract.ExtractionError
		summaryErr    *summary.SummarizationError
		storageErr    *store.StorageError
	)
	switch {
	case errors.As(err, &validationErr):
		return "Invalid configuration: " + validationErr.Error() + "."
	case errors.Is(err, channels.ErrMediaTooLarge):
		return msgFileTooLarge
	case errors.Is(err, channels.ErrMediaDownloadFailed):
		return msgDownloadFailed
	case errors.As(err, &extractErr):
		return msgExtractFailed
	case errors.As(err, &summaryErr):
		return msgSummaryFailed
	case errors.As(err, &storageErr):
		return msgStorageFailed
	default:
		return msgInternalFailure
	}
}
