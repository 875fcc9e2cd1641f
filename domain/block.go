package domain

// BlockType tags the construct a Block was extracted from.
type BlockType string

// Source (PL/SQL) block types.
const (
	BlockAssignmentConstString BlockType = "ASSIGNMENT_CONST_STRING"
	BlockCondition             BlockType = "CONDITION"
	BlockInsertStatement       BlockType = "INSERT_STATEMENT"
	BlockExceptionHandler      BlockType = "EXCEPTION_HANDLER"
)

// Target (Java) block types.
const (
	BlockMethod    BlockType = "METHOD"
	BlockField     BlockType = "FIELD"
	BlockStatement BlockType = "STATEMENT"
)

// IsDeclaration reports whether blocks of this type are method or field
// declarations.
func (t BlockType) IsDeclaration() bool {
	return t == BlockMethod || t == BlockField
}

// Block is a typed snippet extracted from a parsed source or target file.
// Text is the exact byte span of the node in the original file.
//
// Block is a comparable value type; two blocks are equal when SourcePath,
// Type and Text match (IsHelper is a label, not identity).
type Block struct {
	Type       BlockType `json:"type"`
	Text       string    `json:"text"`
	SourcePath string    `json:"sourcePath"`
	IsHelper   bool      `json:"isHelper"`
}

// NewBlock creates a non-helper block.
func NewBlock(t BlockType, text, sourcePath string) Block {
	return Block{Type: t, Text: text, SourcePath: sourcePath}
}

// Same reports whether b and o denote the same extracted block.
func (b Block) Same(o Block) bool {
	return b.SourcePath == o.SourcePath && b.Type == o.Type && b.Text == o.Text
}

// AsHelper returns a copy of b labelled as a helper.
func (b Block) AsHelper() Block {
	b.IsHelper = true
	return b
}
