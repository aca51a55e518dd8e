package logger

import "go.uber.org/zap"

// New builds the service logger. Development mode uses the human-readable
// console encoder.
func New(environment string) (*zap.SugaredLogger, error) {
	var l *zap.Logger
	var err error
	if environment == "production" {
		l, err = zap.NewProduction()
	} else {
		l, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}
