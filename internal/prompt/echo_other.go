//go:build !linux

package prompt

import (
	"errors"
	"os"
)

func disableEcho(*os.File) (func(), error) {
	return nil, errors.New("prompt: echo control not supported on this platform")
}
