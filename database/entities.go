package database

import "time"

type FundraiserStatus string

const (
	FundraiserActive FundraiserStatus = "ACTIVE"
	FundraiserPaused FundraiserStatus = "PAUSED"
	FundraiserEnded  FundraiserStatus = "ENDED"
	FundraiserHidden FundraiserStatus = "HIDDEN"
)

var FundraiserStatuses = []FundraiserStatus{
	FundraiserActive,
	FundraiserPaused,
	FundraiserEnded,
	FundraiserHidden,
}

func (s FundraiserStatus) Valid() bool {
	for _, status := range FundraiserStatuses {
		if s == status {
			return true
		}
	}
	return false
}

type DonationStatus string

const (
	DonationPending   DonationStatus = "PENDING"
	DonationConfirmed DonationStatus = "CONFIRMED"
)

type ReportStatus string

const (
	ReportPending   ReportStatus = "PENDING"
	ReportResolved  ReportStatus = "RESOLVED"
	ReportDismissed ReportStatus = "DISMISSED"
)

const DefaultCurrency = "ETH"

// BaseEntity is an abstract entity, all other entities should be derived from it
type BaseEntity struct {
	ID uint64 `gorm:"primaryKey" json:"id"`
}

type User struct {
	BaseEntity
	Username      *string   `gorm:"type:varchar(64);uniqueIndex" json:"username,omitempty"`
	Fid           *uint64   `gorm:"index" json:"fid,omitempty"`
	WalletAddress *string   `gorm:"type:varchar(42);uniqueIndex" json:"walletAddress,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

type Fundraiser struct {
	BaseEntity
	CreatorUserID      *uint64          `gorm:"index" json:"creatorUserId,omitempty"`
	Creator            *User            `gorm:"foreignKey:CreatorUserID" json:"creator,omitempty"`
	Title              string           `gorm:"type:varchar(200);not null" json:"title"`
	Description        string           `gorm:"type:text" json:"description"`
	GoalAmount         Amount           `gorm:"not null" json:"goalAmount"`
	Currency           string           `gorm:"type:varchar(10);not null" json:"currency"`
	BeneficiaryAddress string           `gorm:"type:varchar(42);not null" json:"beneficiaryAddress"`
	Category           string           `gorm:"type:varchar(50);index" json:"category"`
	CoverImageURL      string           `gorm:"type:varchar(500)" json:"coverImageUrl,omitempty"`
	ChainID            *uint64          `json:"chainId,omitempty"`
	Status             FundraiserStatus `gorm:"type:varchar(10);index;not null" json:"status"`
	TotalRaised        Amount           `gorm:"not null" json:"totalRaised"`
	Deadline           *time.Time       `json:"deadline,omitempty"`
	CreatedAt          time.Time        `gorm:"index" json:"createdAt"`
	UpdatedAt          time.Time        `json:"updatedAt"`

	Donations []Donation `json:"donations,omitempty"`
	Updates   []Update   `json:"updates,omitempty"`
}

type Donation struct {
	BaseEntity
	FundraiserID  uint64          `gorm:"index;not null" json:"fundraiserId"`
	DonorName     string          `gorm:"type:varchar(100)" json:"donorName"`
	DonorAddress  string          `gorm:"type:varchar(42)" json:"donorAddress,omitempty"`
	DonorUsername string          `gorm:"type:varchar(64)" json:"donorUsername,omitempty"`
	Amount        Amount          `gorm:"not null" json:"amount"`
	AmountWei     string          `gorm:"type:varchar(78)" json:"amountWei,omitempty"`
	Currency      string          `gorm:"type:varchar(10);not null" json:"currency"`
	Message       string          `gorm:"type:varchar(1000)" json:"message,omitempty"`
	Status        DonationStatus  `gorm:"type:varchar(10);index;not null" json:"status"`
	TxHash        *string         `gorm:"type:varchar(66);uniqueIndex" json:"txHash,omitempty"`
	ChainID       *uint64         `json:"chainId,omitempty"`
	CreatedAt     time.Time       `gorm:"index" json:"createdAt"`
	ConfirmedAt   *time.Time      `json:"confirmedAt,omitempty"`
}

type Update struct {
	BaseEntity
	FundraiserID uint64    `gorm:"index;not null" json:"fundraiserId"`
	Title        string    `gorm:"type:varchar(200)" json:"title,omitempty"`
	Content      string    `gorm:"type:text;not null" json:"content"`
	ImageURL     string    `gorm:"type:varchar(500)" json:"imageUrl,omitempty"`
	CreatedAt    time.Time `gorm:"index" json:"createdAt"`
}

func (Update) TableName() string {
	return "fundraiser_updates"
}

type Report struct {
	BaseEntity
	FundraiserID uint64       `gorm:"index;not null" json:"fundraiserId"`
	Fundraiser   *Fundraiser  `json:"fundraiser,omitempty"`
	Reason       string       `gorm:"type:varchar(200);not null" json:"reason"`
	Details      string       `gorm:"type:varchar(2000)" json:"details,omitempty"`
	Status       ReportStatus `gorm:"type:varchar(10);index;not null" json:"status"`
	CreatedAt    time.Time    `gorm:"index" json:"createdAt"`
}
