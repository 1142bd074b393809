package errprocess

import (
	"errors"
	"fmt"

	"github.com/amaan-q00/beta-chatx/pkg/logger"
)

// Set logs errMsg and returns it as an error.
func Set(errMsg string) error {
	logger.Log.Error(errMsg)
	return errors.New(errMsg)
}

// Setf formats, logs and returns an error.
func Setf(format string, args ...interface{}) error {
	return Set(fmt.Sprintf(format, args...))
}
