package logger

import (
	"go.uber.org/zap"
)

// New returns a production logger unless running in development.
func New(environment string) *zap.Logger {
	var (
		l   *zap.Logger
		err error
	)
	if environment == "development" {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return l
}
