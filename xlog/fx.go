package xlog

import (
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// FxXLogger routes fx lifecycle events into the component logger "Fx".
type FxXLogger struct {
	logger XLogger
}

func hookFields(function, caller string) []zap.Field {
	return []zap.Field{
		zap.String("function", function),
		zap.String("caller", caller),
	}
}

// moduleFields appends the module only when the event came from one.
func moduleFields(module string, fields ...zap.Field) []zap.Field {
	if module != "" {
		return append(fields, zap.String("module", module))
	}
	return fields
}

func (l *FxXLogger) LogEvent(event fxevent.Event) {
	if l == nil || l.logger == nil {
		return
	}

	switch e := event.(type) {
	case *fxevent.OnStartExecuting:
		l.logger.Debug("[fx] hook OnStart", hookFields(e.FunctionName, e.CallerName)...)
	case *fxevent.OnStartExecuted:
		fields := append(hookFields(e.FunctionName, e.CallerName), zap.Duration("in", e.Runtime))
		if e.Err != nil {
			l.logger.Error(e.Err, "[fx] hook OnStart failed", fields...)
			return
		}
		l.logger.Debug("[fx] hook OnStart executed", fields...)
	case *fxevent.OnStopExecuting:
		l.logger.Info("[fx] hook OnStop", hookFields(e.FunctionName, e.CallerName)...)
	case *fxevent.OnStopExecuted:
		fields := append(hookFields(e.FunctionName, e.CallerName), zap.Duration("in", e.Runtime))
		if e.Err != nil {
			l.logger.Error(e.Err, "[fx] hook OnStop failed", fields...)
			return
		}
		l.logger.Info("[fx] hook OnStop executed", fields...)
	case *fxevent.Supplied:
		if e.Err != nil {
			l.logger.Error(e.Err, "[fx] supply failed",
				zap.String("type", e.TypeName),
				zap.Strings("stacktrace", e.StackTrace),
			)
			return
		}
		l.logger.Debug("[fx] supplied", moduleFields(e.ModuleName, zap.String("type", e.TypeName))...)
	case *fxevent.Provided:
		for _, rtype := range e.OutputTypeNames {
			l.logger.Debug("[fx] provided", moduleFields(e.ModuleName,
				zap.Bool("private", e.Private),
				zap.String("rtype", rtype),
				zap.String("constructor", e.ConstructorName),
			)...)
		}
		if e.Err != nil {
			l.logger.Error(e.Err, "[fx] provide failed", zap.Strings("stacktrace", e.StackTrace))
		}
	case *fxevent.Replaced:
		for _, rtype := range e.OutputTypeNames {
			l.logger.Debug("[fx] replaced", moduleFields(e.ModuleName, zap.String("rtype", rtype))...)
		}
		if e.Err != nil {
			l.logger.Error(e.Err, "[fx] replace failed", zap.Strings("stacktrace", e.StackTrace))
		}
	case *fxevent.Decorated:
		for _, rtype := range e.OutputTypeNames {
			l.logger.Debug("[fx] decorated", moduleFields(e.ModuleName,
				zap.String("rtype", rtype),
				zap.String("decorator", e.DecoratorName),
			)...)
		}
		if e.Err != nil {
			l.logger.Error(e.Err, "[fx] decorate failed", zap.Strings("stacktrace", e.StackTrace))
		}
	case *fxevent.Invoking:
		l.logger.Debug("[fx] invoking", moduleFields(e.ModuleName, zap.String("function", e.FunctionName))...)
	case *fxevent.Invoked:
		if e.Err != nil {
			l.logger.Error(e.Err, "[fx] invoke failed",
				zap.String("function", e.FunctionName),
				zap.String("trace", e.Trace),
			)
		}
	case *fxevent.Stopping:
		l.logger.Info("[fx] stopping", zap.String("signal", e.Signal.String()))
	case *fxevent.Stopped:
		if e.Err != nil {
			l.logger.Error(e.Err, "[fx] stop failed")
		}
	case *fxevent.RollingBack:
		l.logger.Warn("[fx] start failed, rolling back", zap.Error(e.StartErr))
	case *fxevent.RolledBack:
		if e.Err != nil {
			l.logger.Error(e.Err, "[fx] rollback failed")
		}
	case *fxevent.Started:
		if e.Err != nil {
			l.logger.Error(e.Err, "[fx] start failed")
			return
		}
		l.logger.Debug("[fx] running")
	case *fxevent.LoggerInitialized:
		if e.Err != nil {
			l.logger.Error(e.Err, "[fx] custom logger failed")
			return
		}
		l.logger.Debug("[fx] custom logger initialized", zap.String("constructor", e.ConstructorName))
	}
}

func NewFxXLogger(logger XLogger) *FxXLogger {
	return &FxXLogger{logger: newComponentXLogger(logger, "Fx")}
}
