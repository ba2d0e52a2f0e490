package config

// Default values applied last in the merge chain. These mirror the scaffold
// layout produced by `loom create`.
const (
	DefaultDatasetsDir   = "data"
	DefaultComponentsDir = "components"
	DefaultStaticDir     = "static"
	DefaultOutputDir     = "build"
	DefaultOutputJS      = "index.js"
	DefaultOutputCSS     = "styles.css"
	DefaultTempDir       = ".loom"
	DefaultCSSInput      = "styles.css"
	DefaultInputFile     = "index.md"
	DefaultPort          = 3000
	DefaultEventsSubject = "loom.builds"
)

// defaults returns the fixed base configuration.
func defaults() Config {
	return Config{
		Datasets:   DefaultDatasetsDir,
		Components: DefaultComponentsDir,
		Static:     DefaultStaticDir,
		Output:     DefaultOutputDir,
		OutputJS:   DefaultOutputJS,
		OutputCSS:  DefaultOutputCSS,
		Temp:       DefaultTempDir,
		CSS:        DefaultCSSInput,
		InputFile:  DefaultInputFile,
		Port:       DefaultPort,
		Layout:     LayoutBlog,
		Theme:      ThemeDefault,
		Events:     EventsConfig{Subject: DefaultEventsSubject},
	}
}

// overlay copies every non-zero field of src onto dst. Boolean flags are
// one-way at a higher-precedence layer except SSR, which is tri-state.
func overlay(dst *Config, src Config) {
	if len(src.Alias) > 0 {
		if dst.Alias == nil {
			dst.Alias = make(map[string]string, len(src.Alias))
		}
		for k, v := range src.Alias {
			dst.Alias[k] = v
		}
	}
	if src.Watch {
		dst.Watch = true
	}
	if src.Open {
		dst.Open = true
	}
	if src.Datasets != "" {
		dst.Datasets = src.Datasets
	}
	if src.Components != "" {
		dst.Components = src.Components
	}
	if src.Static != "" {
		dst.Static = src.Static
	}
	if src.Minify {
		dst.Minify = true
	}
	if src.SSR != nil {
		dst.SSR = src.SSR
	}
	if src.DefaultComponents != "" {
		dst.DefaultComponents = src.DefaultComponents
	}
	if src.Layout != "" {
		dst.Layout = src.Layout
	}
	if src.Theme != "" {
		dst.Theme = src.Theme
	}
	if src.Output != "" {
		dst.Output = src.Output
	}
	if src.OutputJS != "" {
		dst.OutputJS = src.OutputJS
	}
	if src.OutputCSS != "" {
		dst.OutputCSS = src.OutputCSS
	}
	if src.Port != 0 {
		dst.Port = src.Port
	}
	if src.Temp != "" {
		dst.Temp = src.Temp
	}
	if src.CSS != "" {
		dst.CSS = src.CSS
	}
	if src.Template != "" {
		dst.Template = src.Template
	}
	if len(src.Transform) > 0 {
		dst.Transform = append([]string(nil), src.Transform...)
	}
	if len(src.Compiler.PostProcessors) > 0 {
		dst.Compiler.PostProcessors = append([]string(nil), src.Compiler.PostProcessors...)
	}
	if src.Compiler.EvalContextPath != "" {
		dst.Compiler.EvalContextPath = src.Compiler.EvalContextPath
	}
	if src.Events.URL != "" {
		dst.Events.URL = src.Events.URL
	}
	if src.Events.Subject != "" {
		dst.Events.Subject = src.Events.Subject
	}
	if src.History {
		dst.History = true
	}
	if src.InputString != "" {
		dst.InputString = src.InputString
	}
	if src.InputFile != "" {
		dst.InputFile = src.InputFile
	}
	if src.InputDir != "" {
		dst.InputDir = src.InputDir
	}
}
