package token

// Kind identifies the lexical class of a Token. The keyword set is
// closed (spec §4.1); everything else is an operator/punctuation symbol
// or one of the STRING_* family emitted by the interpolation state
// machine.
type Kind int

const (
	EOF Kind = iota

	Ident
	BacktickIdent

	IntLit
	FloatLit

	// String interpolation sub-tokens (spec §4.1).
	StringStart
	StringMultiStart
	StringPart
	StringNewline
	StringEscape
	StringInterpStart
	StringInterpEnd
	StringEnd

	LineComment
	DocComment
	BlockComment

	// Keywords.
	KwAbstract
	KwAmends
	KwAs
	KwClass
	KwConst
	KwDelete
	KwElse
	KwExtends
	KwExternal
	KwFalse
	KwFixed
	KwFor
	KwFunction
	KwHidden
	KwIf
	KwImport
	KwImportStar
	KwIn
	KwIs
	KwLet
	KwLocal
	KwModule
	KwNew
	KwNothing
	KwNull
	KwOpen
	KwOuter
	KwOut
	KwRead
	KwReadStar
	KwReadQuestion
	KwSuper
	KwThis
	KwThrow
	KwTrace
	KwTrue
	KwTypealias
	KwUnknown
	KwWhen

	// Punctuation / operators.
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	LDBracket // [[
	RDBracket // ]]
	Comma
	Dot
	QDot // ?.
	Colon
	Arrow     // ->
	Assign    // =
	Spread    // ...
	SpreadQ   // ...?
	Ellipsis2 // unused placeholder kept for grammar symmetry
	Bang      // !
	NotNullAssert // !!
	Question  // ?
	Coalesce  // ??
	Pipe      // |>
	Bar       // | (union type separator)
	Or        // ||
	And       // &&
	Eq        // ==
	Ne        // !=
	Lt
	Le
	Gt
	Ge
	Plus
	Minus
	Star
	Slash
	IntDiv // ~/
	Percent
	Pow // **
	At  // @
)

var keywords = map[string]Kind{
	"abstract":  KwAbstract,
	"amends":    KwAmends,
	"as":        KwAs,
	"class":     KwClass,
	"const":     KwConst,
	"delete":    KwDelete,
	"else":      KwElse,
	"extends":   KwExtends,
	"external":  KwExternal,
	"false":     KwFalse,
	"fixed":     KwFixed,
	"for":       KwFor,
	"function":  KwFunction,
	"hidden":    KwHidden,
	"if":        KwIf,
	"import":    KwImport,
	"in":        KwIn,
	"is":        KwIs,
	"let":       KwLet,
	"local":     KwLocal,
	"module":    KwModule,
	"new":       KwNew,
	"nothing":   KwNothing,
	"null":      KwNull,
	"open":      KwOpen,
	"outer":     KwOuter,
	"out":       KwOut,
	"read":      KwRead,
	"super":     KwSuper,
	"this":      KwThis,
	"throw":     KwThrow,
	"trace":     KwTrace,
	"true":      KwTrue,
	"typealias": KwTypealias,
	"unknown":   KwUnknown,
	"when":      KwWhen,
}

// LookupKeyword returns the Kind for a reserved word, or (Ident, false)
// if ident is not a keyword.
func LookupKeyword(ident string) (Kind, bool) {
	k, ok := keywords[ident]
	if !ok {
		return Ident, false
	}
	return k, true
}

// Token is a single lexical unit: (kind, span, text), per spec §3.
type Token struct {
	Kind Kind
	Text string
	Pos  Span

	// NewlinesBefore counts newlines skipped before this token, exposed
	// to the parser for same-line rules (spec §4.1, e.g. disallowing a
	// line break between a receiver and its call argument list).
	NewlinesBefore int
}

func (t Token) Span() Span { return t.Pos }

func (t Token) String() string {
	if t.Text != "" {
		return t.Text
	}
	return kindName(t.Kind)
}

func kindName(k Kind) string {
	switch k {
	case EOF:
		return "<eof>"
	case Ident:
		return "<ident>"
	case IntLit:
		return "<int>"
	case FloatLit:
		return "<float>"
	default:
		return "<token>"
	}
}
