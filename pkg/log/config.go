package log

// Config declares a logger in terms of level, format, and destination.
type Config struct {
	// Level is one of debug|info|warn|error|fatal. Empty means info.
	Level string
	// Format is one of text|json. Empty means text.
	Format string
	// File, when set, appends entries to the given path instead of stderr.
	File string
}

// ApplyConfig builds a Logger from a declarative Config.
func ApplyConfig(cfg *Config) (Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var formatter Formatter
	switch cfg.Format {
	case "", "text":
		formatter = &TextFormatter{}
	case "json":
		formatter = &JSONFormatter{}
	default:
		return nil, errUnknownFormat(cfg.Format)
	}

	opts := []LoggerOption{WithLevel(level), WithFormatter(formatter)}
	if cfg.File != "" {
		out, err := NewFileOutput(cfg.File)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithOutput(out))
	}
	return NewLogger(opts...), nil
}

type errUnknownFormat string

func (e errUnknownFormat) Error() string { return "unknown log format " + string(e) }
