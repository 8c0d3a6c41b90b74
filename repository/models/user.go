package models

// User is a workflow participant (creator, approver or signer).
type User struct {
	ID           string `gorm:"column:user_id;primaryKey;type:varchar(50)" json:"id"`
	Name         string `gorm:"column:name;type:varchar(100);not null" json:"name"`
	Position     string `gorm:"column:position;type:varchar(100)" json:"position"`
	Registration string `gorm:"column:registration;type:varchar(50)" json:"registration"`
	UnitID       string `gorm:"column:unit_id;type:varchar(50);index" json:"unit_id"`
	Unit         *Unit  `gorm:"foreignKey:UnitID" json:"unit,omitempty"`
	Role         string `gorm:"column:role;type:varchar(30);default:'servidor'" json:"role"`
}
