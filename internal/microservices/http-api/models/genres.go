package models

// Genre is a book category, e.g. "Science Fiction".
type Genre struct {
	ID   int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Name string `json:"name" gorm:"size:200;not null"`
}

func (Genre) TableName() string {
	return "genres"
}

// Language is the original language a book was written in.
type Language struct {
	ID   int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Name string `json:"name" gorm:"size:200;not null"`
}

func (Language) TableName() string {
	return "languages"
}
