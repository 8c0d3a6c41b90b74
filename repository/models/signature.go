package models

import "time"

// Signature types. "Digital" here means an attributed action with a
// timestamp, not a PKI signature; manuscrita carries a rasterized image
// captured from on-screen drawing.
const (
	SignatureTypeDigital     = "digital"
	SignatureTypeHandDrawn   = "manuscrita"
	SignatureTypeCertificate = "certificado"
)

// DispatchSignature records that a signer affixed a signature to a dispatch.
// Rows are immutable after creation; multiple signatures per dispatch are
// permitted, so "is signed" is an existence check over these rows.
type DispatchSignature struct {
	ID            string    `gorm:"column:signature_id;primaryKey;type:varchar(50)" json:"id"`
	DispatchID    string    `gorm:"column:dispatch_id;type:varchar(50);not null;index" json:"dispatch_id"`
	Dispatch      *Dispatch `gorm:"foreignKey:DispatchID" json:"dispatch,omitempty"`
	SignerID      string    `gorm:"column:signer_id;type:varchar(50);not null;index" json:"signer_id"`
	Signer        *User     `gorm:"foreignKey:SignerID" json:"signer,omitempty"`
	SignatureType string    `gorm:"column:signature_type;type:varchar(20);not null" json:"signature_type"`
	SignatureData *string   `gorm:"column:signature_data;type:text" json:"signature_data,omitempty"`
	SignedAt      time.Time `gorm:"column:signed_at;autoCreateTime" json:"signed_at"`
	IsValid       bool      `gorm:"column:is_valid;default:true" json:"is_valid"`
	IPAddress     string    `gorm:"column:ip_address;type:varchar(45)" json:"ip_address,omitempty"`
	DeviceInfo    string    `gorm:"column:device_info;type:text" json:"device_info,omitempty"`
}

// ValidSignatureType reports whether t is one of the known signature types.
func ValidSignatureType(t string) bool {
	switch t {
	case SignatureTypeDigital, SignatureTypeHandDrawn, SignatureTypeCertificate:
		return true
	}
	return false
}
