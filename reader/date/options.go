package date

type Option func(*Parser)

// WithLayouts replaces the list of layouts tried by the parser.
func WithLayouts(layouts ...string) Option {
	return func(p *Parser) { p.layouts = layouts }
}

// WithLenient enables a last resort attempt with dateparse, which guesses
// format of the input.
func WithLenient(enable bool) Option {
	return func(p *Parser) { p.lenient = enable }
}
