package pipeline

import (
	"errors"

	"github.com/abdul-hamid-achik/photomark/internal/apperror"
	"github.com/abdul-hamid-achik/photomark/internal/processor"
)

// classify turns a lower-layer error into a ConfigError or EngineError.
// Invalid caller input is a ConfigError wherever it was detected; every
// other failure, including cancellation, is an EngineError.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, processor.ErrInvalidConfig) {
		return apperror.WrapWithMessage(err, apperror.ErrConfig, op+": invalid configuration")
	}
	return apperror.WrapWithMessage(err, apperror.ErrEngine, op+": image engine failed")
}

// IsConfigError reports whether err is a configuration error.
func IsConfigError(err error) bool {
	return apperror.IsConfig(err)
}

// IsEngineError reports whether err is an engine error.
func IsEngineError(err error) bool {
	return apperror.IsEngine(err)
}

// MissingFields lists the required fields absent from the config that
// caused err, if any.
func MissingFields(err error) []string {
	var ve *processor.ValidationError
	if errors.As(err, &ve) {
		return ve.Missing()
	}
	return nil
}
