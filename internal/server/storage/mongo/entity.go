package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/iudanet/productreviews/internal/models"
)

// userDoc represents a user account in MongoDB
type userDoc struct {
	CreatedAt    time.Time          `bson:"createdAt"`
	Username     string             `bson:"username"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"passwordHash"`
	ID           primitive.ObjectID `bson:"_id,omitempty"`
}

func (d *userDoc) toModel() *models.User {
	return &models.User{
		ID:           d.ID.Hex(),
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt,
	}
}

// productDoc represents a product in MongoDB, reviews holds review ids in insertion order
type productDoc struct {
	Name        string               `bson:"name"`
	Description string               `bson:"description"`
	Category    string               `bson:"category"`
	Reviews     []primitive.ObjectID `bson:"reviews"`
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
}

func (d *productDoc) toModel() *models.Product {
	reviews := make([]string, 0, len(d.Reviews))
	for _, id := range d.Reviews {
		reviews = append(reviews, id.Hex())
	}

	return &models.Product{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Description: d.Description,
		Category:    d.Category,
		Reviews:     reviews,
	}
}

// reviewDoc represents a review in MongoDB
type reviewDoc struct {
	Date      time.Time          `bson:"date"`
	Comment   string             `bson:"comment"`
	Rating    int                `bson:"rating"`
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	ProductID primitive.ObjectID `bson:"productId"`
}

func (d *reviewDoc) toModel() *models.Review {
	return &models.Review{
		ID:        d.ID.Hex(),
		ProductID: d.ProductID.Hex(),
		Rating:    d.Rating,
		Comment:   d.Comment,
		Date:      d.Date,
	}
}

// ratingDoc is a row of the top rated aggregation
type ratingDoc struct {
	Name          string             `bson:"name"`
	AverageRating float64            `bson:"averageRating"`
	ID            primitive.ObjectID `bson:"_id"`
}
