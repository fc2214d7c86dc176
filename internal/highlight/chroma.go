package highlight

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"

	"github.com/zjrosen/hlcache/internal/log"
)

// Parser turns text into an Artifact. prev is an earlier artifact for the
// same language that the parser may reuse; it may be nil.
type Parser interface {
	Parse(ctx context.Context, language, text string, prev Artifact) (Artifact, error)
}

// Highlighter classifies an artifact into category ranges.
type Highlighter interface {
	Configure(language string, names []string) (*Configuration, error)
	Highlight(ctx context.Context, cfg *Configuration, tree Artifact, text string) ([]Range, error)
}

// categoryTokens maps category names to the chroma token types they cover.
// A token type not listed exactly is resolved through its sub-category and
// then its category, so "keyword" also covers KeywordReserved and friends.
var categoryTokens = map[string][]chroma.TokenType{
	"keyword":     {chroma.Keyword, chroma.KeywordDeclaration, chroma.KeywordNamespace, chroma.KeywordReserved, chroma.KeywordPseudo, chroma.OperatorWord},
	"function":    {chroma.NameFunction, chroma.NameFunctionMagic},
	"builtin":     {chroma.NameBuiltin, chroma.NameBuiltinPseudo},
	"type":        {chroma.KeywordType, chroma.NameClass},
	"constructor": {chroma.NameClass},
	"string":      {chroma.LiteralString},
	"escape":      {chroma.LiteralStringEscape},
	"number":      {chroma.LiteralNumber},
	"comment":     {chroma.Comment},
	"constant":    {chroma.NameConstant, chroma.KeywordConstant},
	"variable":    {chroma.NameVariable, chroma.Name},
	"property":    {chroma.NameProperty},
	"attribute":   {chroma.NameAttribute, chroma.NameDecorator},
	"tag":         {chroma.NameTag},
	"label":       {chroma.NameLabel},
	"namespace":   {chroma.NameNamespace},
	"module":      {chroma.NameNamespace},
	"operator":    {chroma.Operator},
	"punctuation": {chroma.Punctuation},
	"preproc":     {chroma.CommentPreproc},
}

// Configuration is a compiled (language, names) pair. It is immutable and
// safe to share between goroutines.
type Configuration struct {
	Language string
	Names    []string
	lexer    chroma.Lexer
	classes  map[chroma.TokenType]int
}

// Category returns the index into Names that a token type highlights as.
func (c *Configuration) Category(t chroma.TokenType) (int, bool) {
	for _, candidate := range []chroma.TokenType{t, t.SubCategory(), t.Category()} {
		if idx, ok := c.classes[candidate]; ok {
			return idx, true
		}
	}
	return 0, false
}

// TokenTree is the Artifact produced by ChromaParser.
type TokenTree struct {
	language string
	source   string
	tokens   []chroma.Token
}

func (t *TokenTree) Language() string { return t.language }
func (t *TokenTree) Source() string   { return t.source }

// Tokens returns the token stream. Callers must not modify it.
func (t *TokenTree) Tokens() []chroma.Token { return t.tokens }

func lookupLexer(language string) (chroma.Lexer, error) {
	lexer := lexers.Get(language)
	if lexer == nil {
		return nil, &UnsupportedLanguageError{Language: language}
	}
	return chroma.Coalesce(lexer), nil
}

// ChromaParser tokenises text with chroma's lexers.
type ChromaParser struct{}

func NewChromaParser() *ChromaParser {
	return &ChromaParser{}
}

func (p *ChromaParser) Parse(ctx context.Context, language, text string, prev Artifact) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ParseError{Language: language, Err: err}
	}

	if tree, ok := prev.(*TokenTree); ok && tree != nil && tree.language == language && tree.source == text {
		log.Debug(log.CatHighlight, "Reusing token tree", "language", language, "bytes", len(text))
		return tree, nil
	}

	lexer, err := lookupLexer(language)
	if err != nil {
		return nil, err
	}

	// A non-nil options value skips EnsureLF so offsets match the input bytes.
	it, err := lexer.Tokenise(&chroma.TokeniseOptions{State: "root"}, text)
	if err != nil {
		return nil, &ParseError{Language: language, Err: err}
	}

	return &TokenTree{language: language, source: text, tokens: it.Tokens()}, nil
}

// ChromaHighlighter maps chroma token types onto caller-named categories.
type ChromaHighlighter struct{}

func NewChromaHighlighter() *ChromaHighlighter {
	return &ChromaHighlighter{}
}

func (h *ChromaHighlighter) Configure(language string, names []string) (*Configuration, error) {
	lexer, err := lookupLexer(language)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, &ConfigurationError{Language: language, Reason: "no category names"}
	}

	classes := make(map[chroma.TokenType]int)
	for idx, name := range names {
		tokens, ok := resolveCategory(name)
		if !ok {
			return nil, &ConfigurationError{Language: language, Name: name, Reason: "no matching token class"}
		}
		for _, t := range tokens {
			// The first name claiming a token type wins.
			if _, taken := classes[t]; !taken {
				classes[t] = idx
			}
		}
	}

	return &Configuration{
		Language: language,
		Names:    append([]string(nil), names...),
		lexer:    lexer,
		classes:  classes,
	}, nil
}

func resolveCategory(name string) ([]chroma.TokenType, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if tokens, ok := categoryTokens[name]; ok {
		return tokens, true
	}
	if prefix, _, found := strings.Cut(name, "."); found {
		tokens, ok := categoryTokens[prefix]
		return tokens, ok
	}
	return nil, false
}

func (h *ChromaHighlighter) Highlight(ctx context.Context, cfg *Configuration, tree Artifact, text string) ([]Range, error) {
	if cfg == nil {
		return nil, errors.New("highlight: nil configuration")
	}
	tokens, ok := tree.(*TokenTree)
	if !ok || tokens == nil {
		return nil, fmt.Errorf("highlight: unsupported artifact %T", tree)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var ranges []Range
	offset := 0
	for _, tok := range tokens.tokens {
		start := offset
		offset += sourceWidth(text, offset, tok.Value)
		if start >= len(text) {
			break
		}
		end := offset
		if end == start {
			continue
		}

		idx, ok := cfg.Category(tok.Type)
		if !ok {
			continue
		}

		if n := len(ranges); n > 0 && ranges[n-1].End == start && ranges[n-1].Category == idx {
			ranges[n-1].End = end
			continue
		}
		ranges = append(ranges, Range{Start: start, End: end, Category: idx})
	}

	return ranges, nil
}

// sourceWidth returns how many bytes of text, from pos on, a token value
// covers. The lexer works on runes and sees every invalid byte as one U+FFFD,
// so the width is measured on the source rune by rune.
func sourceWidth(text string, pos int, value string) int {
	n := pos
	for range value {
		if n >= len(text) {
			break
		}
		_, size := utf8.DecodeRuneInString(text[n:])
		n += size
	}
	return n - pos
}

var (
	_ Parser      = (*ChromaParser)(nil)
	_ Highlighter = (*ChromaHighlighter)(nil)
	_ Artifact    = (*TokenTree)(nil)
)

// DetectLanguage picks a language name for filename from its extension, in
// the form the parser accepts.
func DetectLanguage(filename string) (string, bool) {
	lexer := lexers.Match(filename)
	if lexer == nil {
		return "", false
	}
	cfg := lexer.Config()
	if len(cfg.Aliases) > 0 {
		return NormalizeLanguage(cfg.Aliases[0]), true
	}
	return NormalizeLanguage(cfg.Name), true
}
