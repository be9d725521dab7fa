package forecast

import "errors"

var (
	// ErrNoData means there was nothing to fit.
	ErrNoData = errors.New("no data to forecast")
	// ErrInsufficientVariation means fewer than two distinct days were available.
	ErrInsufficientVariation = errors.New("not enough distinct days to fit a trend")
	ErrFitFailed             = errors.New("regression fit failed")
	ErrInvalidHorizon        = errors.New("horizon must be at least 1 day")
)
