package domain

import "errors"

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidIndex         = errors.New("invalid index")
	ErrInvalidSessionFormat = errors.New("invalid session format")
	ErrModelUnavailable     = errors.New("model unavailable")
	ErrGenerationFailed     = errors.New("generation failed")
	ErrNoEngineAvailable    = errors.New("no engine available")
	ErrRenderFailed         = errors.New("render failed")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrInvalidInput, "InvalidInput"},
	{ErrInvalidIndex, "InvalidIndex"},
	{ErrInvalidSessionFormat, "InvalidSessionFormat"},
	{ErrModelUnavailable, "ModelUnavailable"},
	{ErrGenerationFailed, "GenerationFailed"},
	{ErrNoEngineAvailable, "NoEngineAvailable"},
	{ErrRenderFailed, "RenderFailed"},
}

// ErrorCode returns the taxonomy name for err, or "Internal" when err does
// not wrap one of the package sentinels.
func ErrorCode(err error) string {
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "Internal"
}
