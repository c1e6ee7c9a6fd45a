package portfolio

type Repository interface {
	Create(item *Item) error
	GetByID(id string) (*Item, error)
	GetBySlug(slug string) (*Item, error)
	List() ([]*Item, error)
	Delete(id string) error
}
