package objects

// FileInfo describes source of the book.
type FileInfo struct {
	FileName string `json:"file_name" yaml:"file_name"`
}

// Metadata is book description assembled from MOBI and EXTH headers.
type Metadata struct {
	Identifier  string   `json:"identifier" yaml:"identifier"`
	Title       string   `json:"title" yaml:"title"`
	Author      []string `json:"author" yaml:"author"`
	Publisher   string   `json:"publisher" yaml:"publisher"`
	Language    string   `json:"language" yaml:"language"`
	Published   string   `json:"published" yaml:"published"`
	Description string   `json:"description" yaml:"description"`
	Subject     []string `json:"subject" yaml:"subject"`
	Rights      string   `json:"rights" yaml:"rights"`
	Contributor []string `json:"contributor" yaml:"contributor"`
}

// SpineItem is a chapter in reading order.
type SpineItem struct {
	ID    string `json:"id" yaml:"id"`
	Start int    `json:"start" yaml:"start"`
	End   int    `json:"end" yaml:"end"`
	Size  int    `json:"size" yaml:"size"`
}

// TocItem is a navigation entry, Href is either "kindle:pos:..." or "filepos:N".
type TocItem struct {
	Label    string    `json:"label" yaml:"label"`
	Href     string    `json:"href" yaml:"href"`
	Children []TocItem `json:"children,omitempty" yaml:"children,omitempty"`
}

// Stylesheet is a CSS flow referenced from chapter head.
type Stylesheet struct {
	ID   string `json:"id" yaml:"id"`
	Href string `json:"href" yaml:"href"`
}

// ProcessedChapter is chapter markup with all resource references rewritten
// to saved locations.
type ProcessedChapter struct {
	HTML string       `json:"html" yaml:"html"`
	CSS  []Stylesheet `json:"css" yaml:"css"`
}

// ResolvedHref points to the element inside a chapter.
type ResolvedHref struct {
	ID       string `json:"id" yaml:"id"`
	Selector string `json:"selector" yaml:"selector"`
}

// GuideItem is a landmark reference, KF8 only.
type GuideItem struct {
	Label string   `json:"label" yaml:"label"`
	Type  []string `json:"type" yaml:"type"`
	Href  string   `json:"href" yaml:"href"`
}
