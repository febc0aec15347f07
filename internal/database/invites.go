package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"inviteguard/entity"
)

// UpsertInvite writes the durable invite row. A re-created code loses its
// soft-delete marker.
func (m *MongoDB) UpsertInvite(ctx context.Context, inv *entity.InviteRecord) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionInvites)
	filter := bson.D{{"guild_id", inv.GuildID}, {"invite_code", inv.InviteCode}}
	update := bson.D{
		{"$set", bson.D{
			{"inviter_id", inv.InviterID},
			{"uses", inv.Uses},
			{"max_uses", inv.MaxUses},
			{"is_temporary", inv.IsTemporary},
			{"deleted_at", nil},
			{"updated_at", time.Now().UTC()},
		}},
		{"$setOnInsert", bson.D{
			{"created_at", inv.CreatedAt},
		}},
	}
	opts := options.Update().SetUpsert(true)
	_, err = collection.UpdateOne(ctx, filter, update, opts)
	return err
}

// MarkInviteDeleted soft-deletes the row; the inviter reference survives for
// historical attribution.
func (m *MongoDB) MarkInviteDeleted(ctx context.Context, guildID int64, code string) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionInvites)
	filter := bson.D{{"guild_id", guildID}, {"invite_code", code}}
	now := time.Now().UTC()
	update := bson.D{{"$set", bson.D{
		{"deleted_at", now},
		{"updated_at", now},
	}}}
	_, err = collection.UpdateOne(ctx, filter, update)
	return err
}

// RecordInviteUse bumps the use counter for an attributed join. The inviter
// id only fills in when the row does not already carry one.
func (m *MongoDB) RecordInviteUse(ctx context.Context, guildID int64, code string, inviterID int64) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionInvites)
	filter := bson.D{{"guild_id", guildID}, {"invite_code", code}}
	update := bson.D{
		{"$inc", bson.D{{"uses", int64(1)}}},
		{"$set", bson.D{{"updated_at", time.Now().UTC()}}},
	}
	opts := options.Update().SetUpsert(true)
	if _, err = collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return err
	}

	if inviterID == 0 {
		return nil
	}
	fillFilter := bson.D{
		{"guild_id", guildID},
		{"invite_code", code},
		{"$or", bson.A{
			bson.D{{"inviter_id", int64(0)}},
			bson.D{{"inviter_id", bson.D{{"$exists", false}}}},
		}},
	}
	fill := bson.D{{"$set", bson.D{{"inviter_id", inviterID}}}}
	_, err = collection.UpdateOne(ctx, fillFilter, fill)
	return err
}

// ListGuildInvites returns the guild's invite rows, most used first.
func (m *MongoDB) ListGuildInvites(ctx context.Context, guildID int64) ([]*entity.InviteRecord, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionInvites)
	filter := bson.D{{"guild_id", guildID}}
	opts := options.Find().SetSort(bson.D{{"uses", -1}, {"updated_at", -1}})
	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var invites []*entity.InviteRecord
	if err = cursor.All(ctx, &invites); err != nil {
		return nil, err
	}
	return invites, nil
}
