package seed

// file is the top-level structure of a category seed file.
type file struct {
	Categories []entry `yaml:"categories"`
}

// entry is one seeded category.
type entry struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Icon  string `yaml:"icon,omitempty"`
	Color string `yaml:"color,omitempty"`
}
