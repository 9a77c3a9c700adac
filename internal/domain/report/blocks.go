package report

// BlockKind enum
type BlockKind string

const (
	BlockTitle         BlockKind = "title"
	BlockKeyValueTable BlockKind = "key_value_table"
	BlockScoreTable    BlockKind = "score_table"
	BlockHeading       BlockKind = "heading"
	BlockBulletList    BlockKind = "bullet_list"
	BlockParagraph     BlockKind = "paragraph"
	BlockPageBreak     BlockKind = "page_break"
)

// Heading levels used by the assembler.
const (
	LevelSection    = 2
	LevelSubsection = 3
	LevelLabel      = 4
)

// Block is one typed piece of report content. Only the fields that matter
// for its Kind are set.
type Block struct {
	Kind  BlockKind  `json:"kind"`
	Text  string     `json:"text,omitempty"`
	Level int        `json:"level,omitempty"`
	Rows  [][]string `json:"rows,omitempty"`
	Items []string   `json:"items,omitempty"`
}

// Document is the ordered block sequence handed to the renderer.
type Document struct {
	Blocks []Block `json:"blocks"`
}

func title(text string) Block { return Block{Kind: BlockTitle, Text: text} }

func heading(level int, text string) Block {
	return Block{Kind: BlockHeading, Level: level, Text: text}
}

func paragraph(text string) Block { return Block{Kind: BlockParagraph, Text: text} }

func bullets(items []string) Block {
	return Block{Kind: BlockBulletList, Items: append([]string(nil), items...)}
}

func pageBreak() Block { return Block{Kind: BlockPageBreak} }
