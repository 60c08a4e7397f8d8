// internal/domain/catalog.go
package domain

// Category категория произведения (фильм, книга, музыка)
type Category struct {
	ID   int64  `json:"-" db:"id"`
	Name string `json:"name" db:"name"`
	Slug string `json:"slug" db:"slug"`
}

// Genre жанр произведения
type Genre struct {
	ID   int64  `json:"-" db:"id"`
	Name string `json:"name" db:"name"`
	Slug string `json:"slug" db:"slug"`
}

// Title произведение, к которому пишут отзывы.
// Rating вычисляется из отзывов и никогда не задается напрямую.
type Title struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Year        int       `json:"year" db:"year"`
	Rating      *int      `json:"rating" db:"rating"`
	Description string    `json:"description" db:"description"`
	CategoryID  *int64    `json:"-" db:"category_id"`
	Genres      []Genre   `json:"genre" db:"-"`
	Category    *Category `json:"category" db:"-"`
}

// CatalogItemRequest для создания категории или жанра (HTTP)
type CatalogItemRequest struct {
	Name string `json:"name" validate:"required,max=256"`
	Slug string `json:"slug" validate:"required,max=50,slug"`
}

// CreateTitleRequest тело запроса на создание произведения.
// Жанры и категория передаются слагами.
type CreateTitleRequest struct {
	Name        string   `json:"name" validate:"required,max=256"`
	Year        *int     `json:"year" validate:"required,min=0,notfutureyear"`
	Description string   `json:"description"`
	Genre       []string `json:"genre" validate:"required,dive,max=50,slug"`
	Category    string   `json:"category" validate:"required,max=50,slug"`
}

// UpdateTitleRequest частичное обновление произведения
type UpdateTitleRequest struct {
	Name        *string   `json:"name,omitempty" validate:"omitempty,min=1,max=256"`
	Year        *int      `json:"year,omitempty" validate:"omitempty,min=0,notfutureyear"`
	Description *string   `json:"description,omitempty"`
	Genre       *[]string `json:"genre,omitempty"`
	Category    *string   `json:"category,omitempty" validate:"omitempty,max=50,slug"`
}

// TitleFilter параметры фильтрации списка произведений
type TitleFilter struct {
	Name     string
	Year     *int
	Genre    string
	Category string
}
