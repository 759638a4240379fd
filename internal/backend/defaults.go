package backend

import "log/slog"

// Defaults returns every known adapter. Order within a capability is the
// fixed priority order the registry publishes.
func Defaults(cfg Config, runner Runner, logger *slog.Logger) []Backend {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}
	return []Backend{
		NewTabulaLayout(),
		NewPdftotext(cfg, runner, true, logger),
		NewPdftotext(cfg, runner, false, logger),
		NewPlainText(),
		NewTesseract(cfg, runner, logger),
		NewGosseract(cfg, runner, logger),
		NewTabulaGrid(),
		NewTabulaGeometric(),
		NewTextColumns(cfg, runner, logger),
	}
}
