package logs

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var Output *os.File

// InitializeFileLogger redirects the standard logger into logs.txt in the given directory.
func InitializeFileLogger(dir, level string) error {
	parsedLevel, err := logrus.ParseLevel(level)
	if err != nil {
		return errors.Wrap(err, "couldn't parse log level")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "couldn't create %s directory", dir)
	}
	f, err := os.Create(filepath.Join(dir, "logs.txt"))
	if err != nil {
		return errors.Wrap(err, "couldn't create logs file")
	}
	Output = f
	logrus.SetOutput(Output)
	logrus.SetLevel(parsedLevel)
	logrus.SetFormatter(&logrus.TextFormatter{DisableColors: true})
	return nil
}

func CloseLogger() {
	if Output != nil {
		Output.Close()
	}
}
