package catalog

type (
	Module struct {
		ID                int64  `json:"id" db:"id" yaml:"id"`
		Title             string `json:"title" db:"title" yaml:"title"`
		Description       string `json:"description" db:"description" yaml:"description"`
		OrderIndex        int    `json:"order_index" db:"order_index" yaml:"order_index"`
		DifficultyLevel   int    `json:"difficulty_level" db:"difficulty_level" yaml:"difficulty_level"`
		EstimatedDuration int    `json:"estimated_duration" db:"estimated_duration" yaml:"estimated_duration"` // minutes
		IsActive          bool   `json:"is_active" db:"is_active" yaml:"is_active"`
	}

	Lesson struct {
		ID                int64  `json:"id" db:"id" yaml:"id"`
		ModuleID          int64  `json:"module_id" db:"module_id" yaml:"module_id"`
		Title             string `json:"title" db:"title" yaml:"title"`
		Description       string `json:"description" db:"description" yaml:"description"`
		OrderIndex        int    `json:"order_index" db:"order_index" yaml:"order_index"`
		EstimatedDuration int    `json:"estimated_duration" db:"estimated_duration" yaml:"estimated_duration"` // minutes
		IsActive          bool   `json:"is_active" db:"is_active" yaml:"is_active"`
	}

	// ModuleLessons is an active module with its active lessons, both in order.
	ModuleLessons struct {
		Module
		Lessons []Lesson `json:"lessons"`
	}

	// Curriculum is the active catalog ordered by module order index.
	Curriculum []ModuleLessons
)

// LessonCount returns the number of active lessons across the curriculum.
func (c Curriculum) LessonCount() int {
	var n int
	for _, m := range c {
		n += len(m.Lessons)
	}
	return n
}
