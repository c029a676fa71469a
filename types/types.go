package types

// Entity names, in the order the loader writes them.
const (
	EntityProduct         = "produtos"
	EntitySimilarLink     = "produtos_similares"
	EntityReview          = "avaliacoes"
	EntityCustomer        = "cliente"
	EntityCategory        = "categoria"
	EntityProductCategory = "produto_categoria"
)

// LoadOrder is the referential write order: products before anything that points at
// them, categories before their product links.
var LoadOrder = []string{
	EntityProduct,
	EntitySimilarLink,
	EntityReview,
	EntityCustomer,
	EntityCategory,
	EntityProductCategory,
}

// Product is a row of produtos. A stub carries ID and ASIN only.
type Product struct {
	ID               int64   `gorm:"column:product_id;primaryKey;autoIncrement:false"`
	ASIN             string  `gorm:"column:asin"`
	Title            *string `gorm:"column:title"`
	Group            *string `gorm:"column:product_group"`
	SalesRank        *int64  `gorm:"column:salesrank"`
	ReviewTotal      int     `gorm:"column:review_total"`
	ReviewDownloaded int     `gorm:"column:review_downloaded"`
	ReviewAvg        float64 `gorm:"column:review_avg"`
}

func (Product) TableName() string { return EntityProduct }

// Stub reports whether only identity fields are set.
func (p Product) Stub() bool {
	return p.Title == nil && p.Group == nil && p.SalesRank == nil &&
		p.ReviewTotal == 0 && p.ReviewDownloaded == 0 && p.ReviewAvg == 0
}

type SimilarLink struct {
	ProductASIN string `gorm:"column:product_asin;primaryKey"`
	SimilarASIN string `gorm:"column:similar_asin;primaryKey"`
}

func (SimilarLink) TableName() string { return EntitySimilarLink }

// Category parent is never known from the dump and stays NULL.
type Category struct {
	ID       int64  `gorm:"column:category_id;primaryKey;autoIncrement:false"`
	Name     string `gorm:"column:name"`
	ParentID *int64 `gorm:"column:parent_id"`
}

func (Category) TableName() string { return EntityCategory }

type ProductCategory struct {
	ProductID  int64 `gorm:"column:product_id;primaryKey;autoIncrement:false"`
	CategoryID int64 `gorm:"column:category_id;primaryKey;autoIncrement:false"`
}

func (ProductCategory) TableName() string { return EntityProductCategory }

// Review date is kept as YYYY-MM-DD text, the DATE literal form accepted by both stores.
type Review struct {
	ProductID  int64  `gorm:"column:product_id;primaryKey;autoIncrement:false"`
	CustomerID string `gorm:"column:customer_id;primaryKey"`
	Date       string `gorm:"column:review_date;primaryKey"`
	Rating     int    `gorm:"column:rating"`
	Votes      int    `gorm:"column:votes"`
	Helpful    int    `gorm:"column:helpful"`
}

func (Review) TableName() string { return EntityReview }

type Customer struct {
	ID string `gorm:"column:customer_id;primaryKey"`
}

func (Customer) TableName() string { return EntityCustomer }

// RowSet carries the rows of all six entities, for one block or a whole run.
type RowSet struct {
	Products          []Product
	SimilarLinks      []SimilarLink
	Reviews           []Review
	Customers         []Customer
	Categories        []Category
	ProductCategories []ProductCategory
}

// Count returns the number of rows held for entity.
func (rs *RowSet) Count(entity string) int {
	switch entity {
	case EntityProduct:
		return len(rs.Products)
	case EntitySimilarLink:
		return len(rs.SimilarLinks)
	case EntityReview:
		return len(rs.Reviews)
	case EntityCustomer:
		return len(rs.Customers)
	case EntityCategory:
		return len(rs.Categories)
	case EntityProductCategory:
		return len(rs.ProductCategories)
	}
	return 0
}
