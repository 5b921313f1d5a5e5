/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package log

import (
	"errors"
	"io"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	HelpLevels = "Must be one of: error, warning, info, debug."

	rotateMaxSizeMB = 100
	rotateMaxFiles  = 5
)

var logger = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	l.SetLevel(logrus.InfoLevel)
	return l
}

func SetLevel(strLevel string) error {
	levelMapping := map[string]logrus.Level{
		"error":   logrus.ErrorLevel,
		"warning": logrus.WarnLevel,
		"info":    logrus.InfoLevel,
		"debug":   logrus.DebugLevel,
	}
	level, ok := levelMapping[strLevel]
	if !ok {
		return errors.New("Wrong log level. " + HelpLevels)
	}
	logger.SetLevel(level)
	return nil
}

func Init(out io.Writer, strLevel string) {
	logger.SetOutput(out)
	if err := SetLevel(strLevel); err != nil {
		panic(err)
	}
}

// InitFile routes log output to a size-rotated file.
func InitFile(path, strLevel string) {
	Init(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    rotateMaxSizeMB,
		MaxBackups: rotateMaxFiles,
	}, strLevel)
}

func Error(format string, v ...interface{}) {
	logger.Errorf(format, v...)
}

func Warning(format string, v ...interface{}) {
	logger.Warnf(format, v...)
}

func Info(format string, v ...interface{}) {
	logger.Infof(format, v...)
}

func Debug(format string, v ...interface{}) {
	logger.Debugf(format, v...)
}
