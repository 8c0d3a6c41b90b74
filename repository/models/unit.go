package models

// Unit is an administrative unit dispatches originate from.
type Unit struct {
	ID      string `gorm:"column:unit_id;primaryKey;type:varchar(50)" json:"id"`
	Name    string `gorm:"column:name;type:varchar(150);not null" json:"name"`
	Acronym string `gorm:"column:acronym;type:varchar(20)" json:"acronym"`

	// Relationships
	Users      []User     `gorm:"foreignKey:UnitID" json:"users,omitempty"`
	Dispatches []Dispatch `gorm:"foreignKey:OriginUnitID" json:"dispatches,omitempty"`
}
