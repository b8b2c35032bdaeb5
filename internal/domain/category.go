package domain

// Category is a snapshot of a platform channel category.
type Category struct {
	ID       string
	Name     string
	Position int
	Children int
}
