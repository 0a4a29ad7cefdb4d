// Copyright The ActForGood Authors.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://github.com/actforgood/xcfg/blob/main/LICENSE.

package xcfg

import (
	"github.com/actforgood/xlog"
)

// LogLevelProvider provides a level read from a Config object (a [Provider]
// or a [PropertyMirror]).
// It can be used to configure log level for a xlog.Logger.
// If the level configuration key is not found, the default provided level is returned.
// As the provider reloads, you may change during application run the underlying key
// without restarting the app, and new configured value will be used in place, if suitable.
func LogLevelProvider(
	config Config,
	lvlKey string,
	defaultLvl string,
	levelLabels map[xlog.Level]string,
) xlog.LevelProvider {
	labeledLevels := flipLevelLabels(levelLabels)
	defaultLevel := labeledLevels[defaultLvl]

	return func() xlog.Level {
		lvl, _ := config.Get(lvlKey, defaultLvl).(string)
		if level, found := labeledLevels[lvl]; found {
			return level
		}

		return defaultLevel
	}
}

// flipLevelLabels flips level labels map.
func flipLevelLabels(levelLabels map[xlog.Level]string) map[string]xlog.Level {
	flippedLevelLabels := make(map[string]xlog.Level, len(levelLabels))
	for lvl, label := range levelLabels {
		flippedLevelLabels[label] = lvl
	}

	return flippedLevelLabels
}

// LogErrorHandler is a handler which can be used in a [PeriodicReloadStrategy]
// as a reload error handler. It logs the error with a xlog.Logger.
// Passed parameter is a function that returns the logger (Logger and Provider depend
// one of each other, this way we can instantiate them separately...)
func LogErrorHandler(loggerGetter func() xlog.Logger) func(error) {
	return func(err error) {
		loggerGetter().Warn(
			xlog.MessageKey, "[xcfg] could not reload configuration",
			xlog.ErrorKey, xlog.StackErr(err),
		)
	}
}
