package ds

// ReviewAgg is the "reviews: total: downloaded: avg rating:" triple.
type ReviewAgg struct {
	Total      int
	Downloaded int
	AvgRating  float64
}

// ReviewDetail is one dated customer review line.
type ReviewDetail struct {
	Date     string // YYYY-MM-DD
	Customer string
	Rating   int
	Votes    int
	Helpful  int
}

// Similar is a "similar:" line: the declared count plus the listed ASINs.
type Similar struct {
	Declared int
	ASINs    []string
}

// CategoryPath is one "|A[1]|B[2]|" hierarchy line.
type CategoryPath []string

// Block is one record of the dump, delimited by blank lines. Field values are kept as
// lists in the order they were read so that block shape can be checked at finalize.
type Block struct {
	Line int // input line number of the first line of the block

	ID        []int64
	ASIN      []string
	Title     []string
	Group     []string
	SalesRank []int64
	Similar   []Similar
	// number of "categories:" lines seen
	CategoryGroups int
	Categories     []CategoryPath
	Reviews        []ReviewAgg
	ReviewDetails  []ReviewDetail

	Err error // first parse error, set by the reader. Block must not be normalized.
}

// Stub reports whether the block carries identity only (Id and ASIN).
func (b *Block) Stub() bool {
	return len(b.Title) == 0 && len(b.Group) == 0 && len(b.SalesRank) == 0 && len(b.Reviews) == 0
}

// Empty reports whether nothing at all was accumulated.
func (b *Block) Empty() bool {
	return len(b.ID) == 0 && len(b.ASIN) == 0 && b.Stub() && len(b.Similar) == 0 &&
		b.CategoryGroups == 0 && len(b.Categories) == 0 && len(b.ReviewDetails) == 0 && b.Err == nil
}
