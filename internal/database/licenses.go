package database

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"inviteguard/entity"
)

func (m *MongoDB) CreateLicense(ctx context.Context, license *entity.PremiumLicense) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionLicenses)
	_, err = collection.InsertOne(ctx, license)
	return err
}

// ActivateLicense binds a guild to the license identified by keyHash in a
// single conditional update, so two concurrent activations can never exceed
// max_guilds. Re-activating an already bound guild succeeds without widening
// the set. A nil license with a nil error means the activation was declined:
// unknown key, inactive, expired, or at capacity.
func (m *MongoDB) ActivateLicense(ctx context.Context, keyHash string, guildID int64) (*entity.PremiumLicense, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	now := time.Now().UTC()
	filter := bson.D{
		{"key_hash", keyHash},
		{"is_active", true},
		{"$and", bson.A{
			bson.D{{"$or", bson.A{
				bson.D{{"expires_at", nil}},
				bson.D{{"expires_at", bson.D{{"$gt", now}}}},
			}}},
			bson.D{{"$or", bson.A{
				bson.D{{"activated_guild_ids", guildID}},
				bson.D{{"$expr", bson.D{{"$lt", bson.A{
					bson.D{{"$size", bson.D{{"$ifNull", bson.A{"$activated_guild_ids", bson.A{}}}}}},
					"$max_guilds",
				}}}}},
			}}},
		}},
	}
	update := bson.D{
		{"$addToSet", bson.D{{"activated_guild_ids", guildID}}},
		{"$set", bson.D{{"updated_at", now}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	collection := connection.Database(m.database).Collection(collectionLicenses)
	var license entity.PremiumLicense
	err = collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&license)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &license, nil
}
