package models

import (
	"time"
)

// User owns meals and workout sessions. Registration and credentials live
// outside this service; the row only anchors foreign keys.
type User struct {
	ID        uint      `gorm:"column:user_id;primaryKey" json:"user_id"`
	Email     string    `gorm:"size:255;uniqueIndex" json:"email"`
	Name      string    `gorm:"size:255" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func (User) TableName() string { return "users" }

// Product is a shared catalog row with nutrient densities per 100 g.
// Names are matched case-insensitively but are not unique-constrained.
type Product struct {
	ID             uint      `gorm:"column:product_id;primaryKey" json:"product_id"`
	Name           string    `gorm:"size:255;not null;index" json:"name"`
	CaloriesPer100 float64   `gorm:"column:calories_per_100;default:0" json:"calories_per_100"`
	ProteinPer100  float64   `gorm:"column:protein_per_100;default:0" json:"protein_per_100"`
	CarbsPer100    float64   `gorm:"column:carbs_per_100;default:0" json:"carbs_per_100"`
	FatsPer100     float64   `gorm:"column:fats_per_100;default:0" json:"fats_per_100"`
	Category       string    `gorm:"size:50" json:"category"`
	IsVerified     bool      `gorm:"default:false" json:"is_verified"`
	CreatedBy      *uint     `json:"created_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func (Product) TableName() string { return "products" }

// Meal groups one eating occasion of a user on a date. The Total* columns
// are denormalized sums of its items.
type Meal struct {
	ID            uint       `gorm:"column:meal_id;primaryKey" json:"meal_id"`
	UserID        uint       `gorm:"not null;index" json:"user_id"`
	MealDate      time.Time  `gorm:"type:date;not null;index" json:"meal_date"`
	MealType      string     `gorm:"size:20;not null" json:"meal_type"`
	Notes         string     `gorm:"type:text" json:"notes"`
	TotalCalories float64    `gorm:"default:0" json:"total_calories"`
	TotalProtein  float64    `gorm:"default:0" json:"total_protein"`
	TotalCarbs    float64    `gorm:"default:0" json:"total_carbs"`
	TotalFats     float64    `gorm:"default:0" json:"total_fats"`
	CreatedAt     time.Time  `json:"created_at"`
	Items         []MealItem `gorm:"foreignKey:MealID;references:ID" json:"items,omitempty"`

	User *User `gorm:"foreignKey:UserID;references:ID" json:"-"`
}

func (Meal) TableName() string { return "meals" }

// MealItem stores a nutrient snapshot of a product scaled to QuantityG.
type MealItem struct {
	ID        uint    `gorm:"column:meal_item_id;primaryKey" json:"meal_item_id"`
	MealID    uint    `gorm:"not null;index" json:"meal_id"`
	ProductID uint    `gorm:"not null;index" json:"product_id"`
	QuantityG float64 `gorm:"column:quantity_g;not null" json:"quantity_g"`
	Calories  float64 `gorm:"default:0" json:"calories"`
	Protein   float64 `gorm:"default:0" json:"protein"`
	Carbs     float64 `gorm:"default:0" json:"carbs"`
	Fats      float64 `gorm:"default:0" json:"fats"`

	Product *Product `gorm:"foreignKey:ProductID;references:ID" json:"product,omitempty"`
}

func (MealItem) TableName() string { return "meal_items" }

// Exercise is a shared catalog row, matched by name like Product.
type Exercise struct {
	ID          uint      `gorm:"column:exercise_id;primaryKey" json:"exercise_id"`
	Name        string    `gorm:"size:255;not null;index" json:"name"`
	MuscleGroup *string   `gorm:"size:100" json:"muscle_group"`
	Equipment   *string   `gorm:"size:100" json:"equipment"`
	Difficulty  *string   `gorm:"size:50" json:"difficulty"`
	CreatedBy   *uint     `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Exercise) TableName() string { return "exercises" }

// WorkoutSession is one training session of a user.
type WorkoutSession struct {
	ID            uint         `gorm:"column:session_id;primaryKey" json:"session_id"`
	UserID        uint         `gorm:"not null;index" json:"user_id"`
	SessionDate   time.Time    `gorm:"type:date;not null;index" json:"session_date"`
	StartTime     *time.Time   `json:"start_time"`
	EndTime       *time.Time   `json:"end_time"`
	DurationMin   *int         `json:"duration_min"`
	TotalVolumeKg *float64     `gorm:"column:total_volume_kg" json:"total_volume_kg"`
	Completed     bool         `gorm:"default:false" json:"completed"`
	Notes         string       `gorm:"type:text" json:"notes"`
	Sets          []WorkoutSet `gorm:"foreignKey:SessionID;references:ID" json:"sets,omitempty"`

	User *User `gorm:"foreignKey:UserID;references:ID" json:"-"`
}

func (WorkoutSession) TableName() string { return "workout_sessions" }

// WorkoutSet is one performed set within a session.
type WorkoutSet struct {
	ID         uint     `gorm:"column:set_id;primaryKey" json:"set_id"`
	SessionID  uint     `gorm:"not null;index" json:"session_id"`
	ExerciseID uint     `gorm:"not null;index" json:"exercise_id"`
	SetNumber  int      `gorm:"not null" json:"set_number"`
	Reps       *int     `json:"reps"`
	WeightKg   *float64 `gorm:"column:weight_kg" json:"weight_kg"`

	Exercise *Exercise `gorm:"foreignKey:ExerciseID;references:ID" json:"exercise,omitempty"`
}

func (WorkoutSet) TableName() string { return "workout_sets" }

// All lists every model in migration order.
func All() []any {
	return []any{
		&User{},
		&Product{},
		&Exercise{},
		&Meal{},
		&MealItem{},
		&WorkoutSession{},
		&WorkoutSet{},
	}
}
