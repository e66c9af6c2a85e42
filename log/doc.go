// Package log provides a small structured logger built on [log/slog].
//
// A [Logger] is created once with functional options and never changes
// afterward. [Logger.Wrap] derives a new logger with different options and
// [Logger.With] one with extra attributes:
//
//	logger := log.Make(os.Stderr,
//		log.WithLevel(log.LevelDebug),
//		log.WithTimeLayout("kitchen"))
//
//	logger = logger.With(slog.String("project", "Project1.dproj"))
//	logger.Debug("parse complete", slog.Int("property_groups", 9))
//
// Every level has a context-aware variant. The others use
// [DefaultContextProvider], which returns [context.TODO].
//
// # Levels
//
// [LevelTrace] sits below [LevelDebug] and is used for per-element output
// such as condition evaluation. The default level is [LevelWarn].
//
// # Formats
//
// [FormatText] writes one line per message, colorized unless disabled with
// [WithPretty]. [FormatJSON] writes one JSON object per message.
//
// The package-level functions log through a default logger that writes to
// standard error; [Config] reconfigures it.
package log
