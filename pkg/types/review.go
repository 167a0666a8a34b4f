package types

import "time"

// Review is a customer's rating of a product as shown on the profile page.
// Date is the time of the last edit.
type Review struct {
	ID          ID        `json:"id"`
	ProductID   ID        `json:"productId"`
	ProductName string    `json:"productName"`
	UserID      ID        `json:"userId"`
	Rating      int       `json:"rating"`
	Comment     string    `json:"comment"`
	Date        time.Time `json:"date"`
}

// ReviewInput creates or edits a review. ProductID is ignored on edit.
type ReviewInput struct {
	ProductID ID     `json:"productId,omitempty"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}
