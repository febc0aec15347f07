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

func (m *MongoDB) InsertJoin(ctx context.Context, evt *entity.JoinEvent) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionJoins)
	_, err = collection.InsertOne(ctx, evt)
	return err
}

func (m *MongoDB) InsertLeave(ctx context.Context, evt *entity.LeaveEvent) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionLeaves)
	_, err = collection.InsertOne(ctx, evt)
	return err
}

// LastAttributedInviter returns the inviter recorded on the member's most
// recent join, or 0 when no attributed join exists.
func (m *MongoDB) LastAttributedInviter(ctx context.Context, guildID, memberID int64) (int64, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return 0, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionJoins)
	filter := bson.D{{"guild_id", guildID}, {"member_id", memberID}}
	opts := options.FindOne().SetSort(bson.D{{"joined_at", -1}})
	var join entity.JoinEvent
	err = collection.FindOne(ctx, filter, opts).Decode(&join)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, nil
		}
		return 0, m.findError(err)
	}
	return join.InviterID, nil
}

// HasPriorLeave reports whether the member left this guild before.
func (m *MongoDB) HasPriorLeave(ctx context.Context, guildID, memberID int64) (bool, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return false, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionLeaves)
	filter := bson.D{{"guild_id", guildID}, {"member_id", memberID}}
	count, err := collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ApplyJoinStats bumps the inviter's counters for one attributed join:
// total always, exactly one of real/fake, rejoins when applicable. A single
// $inc upsert keeps total == real + fake without read-modify-write.
func (m *MongoDB) ApplyJoinStats(ctx context.Context, guildID, inviterID int64, fake, rejoin bool) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)

	var realInc, fakeInc, rejoinInc int64
	if fake {
		fakeInc = 1
	} else {
		realInc = 1
	}
	if rejoin {
		rejoinInc = 1
	}

	collection := connection.Database(m.database).Collection(collectionStats)
	filter := bson.D{{"guild_id", guildID}, {"user_id", inviterID}}
	update := bson.D{
		{"$inc", bson.D{
			{"total_invites", int64(1)},
			{"real_invites", realInc},
			{"fake_invites", fakeInc},
			{"rejoins", rejoinInc},
		}},
		{"$set", bson.D{{"updated_at", time.Now().UTC()}}},
	}
	opts := options.Update().SetUpsert(true)
	_, err = collection.UpdateOne(ctx, filter, update, opts)
	return err
}

func (m *MongoDB) IncrementLeaves(ctx context.Context, guildID, inviterID int64) error {
	return m.incrementStat(ctx, guildID, inviterID, "leaves", 1)
}

func (m *MongoDB) IncrementBonus(ctx context.Context, guildID, userID, amount int64) error {
	return m.incrementStat(ctx, guildID, userID, "bonus_invites", amount)
}

func (m *MongoDB) incrementStat(ctx context.Context, guildID, userID int64, field string, amount int64) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionStats)
	filter := bson.D{{"guild_id", guildID}, {"user_id", userID}}
	update := bson.D{
		{"$inc", bson.D{{field, amount}}},
		{"$set", bson.D{{"updated_at", time.Now().UTC()}}},
	}
	opts := options.Update().SetUpsert(true)
	_, err = collection.UpdateOne(ctx, filter, update, opts)
	return err
}

func (m *MongoDB) InsertBonus(ctx context.Context, bonus *entity.BonusInvite) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionBonuses)
	_, err = collection.InsertOne(ctx, bonus)
	return err
}

// UserStats returns nil, nil when no counters exist for the user yet.
func (m *MongoDB) UserStats(ctx context.Context, guildID, userID int64) (*entity.UserInviteStats, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionStats)
	filter := bson.D{{"guild_id", guildID}, {"user_id", userID}}
	var stats entity.UserInviteStats
	err = collection.FindOne(ctx, filter).Decode(&stats)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, m.findError(err)
	}
	return &stats, nil
}

// GuildLeaderboard sorts a guild's inviters by derived net invites.
func (m *MongoDB) GuildLeaderboard(ctx context.Context, guildID int64, limit int) ([]*entity.UserInviteStats, error) {
	match := bson.D{{"$match", bson.D{{"guild_id", guildID}}}}
	return m.leaderboard(ctx, mongo.Pipeline{match}, limit)
}

// GlobalLeaderboard sorts inviters across all guilds.
func (m *MongoDB) GlobalLeaderboard(ctx context.Context, limit int) ([]*entity.UserInviteStats, error) {
	return m.leaderboard(ctx, mongo.Pipeline{}, limit)
}

func (m *MongoDB) leaderboard(ctx context.Context, pipeline mongo.Pipeline, limit int) ([]*entity.UserInviteStats, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	pipeline = append(pipeline,
		bson.D{{"$addFields", bson.D{{"net_invites", bson.D{{"$subtract", bson.A{
			bson.D{{"$add", bson.A{"$real_invites", "$bonus_invites"}}},
			bson.D{{"$add", bson.A{"$fake_invites", "$leaves"}}},
		}}}}}}},
		bson.D{{"$sort", bson.D{{"net_invites", -1}, {"total_invites", -1}}}},
		bson.D{{"$limit", limit}},
	)

	collection := connection.Database(m.database).Collection(collectionStats)
	cursor, err := collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []*entity.UserInviteStats
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// CountJoins and friends back the overview aggregates.
func (m *MongoDB) CountJoins(ctx context.Context, guildID int64) (int64, error) {
	return m.countByGuild(ctx, collectionJoins, guildID)
}

func (m *MongoDB) CountLeaves(ctx context.Context, guildID int64) (int64, error) {
	return m.countByGuild(ctx, collectionLeaves, guildID)
}

func (m *MongoDB) countByGuild(ctx context.Context, name string, guildID int64) (int64, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return 0, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(name)
	return collection.CountDocuments(ctx, bson.D{{"guild_id", guildID}})
}
