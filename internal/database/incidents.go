package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"inviteguard/entity"
)

func (m *MongoDB) InsertIncident(ctx context.Context, incident *entity.Incident) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionIncidents)
	_, err = collection.InsertOne(ctx, incident)
	return err
}

// IncidentsSince returns a guild's incidents newer than the given moment.
func (m *MongoDB) IncidentsSince(ctx context.Context, guildID int64, since time.Time) ([]*entity.Incident, error) {
	filter := bson.D{
		{"guild_id", guildID},
		{"created_at", bson.D{{"$gt", since}}},
	}
	return m.findIncidents(ctx, filter, 0)
}

// RecentIncidents returns a guild's newest incidents, bounded by limit.
func (m *MongoDB) RecentIncidents(ctx context.Context, guildID int64, limit int) ([]*entity.Incident, error) {
	return m.findIncidents(ctx, bson.D{{"guild_id", guildID}}, limit)
}

// ListIncidents returns the newest incidents across all guilds.
func (m *MongoDB) ListIncidents(ctx context.Context, limit int) ([]*entity.Incident, error) {
	return m.findIncidents(ctx, bson.D{}, limit)
}

func (m *MongoDB) findIncidents(ctx context.Context, filter bson.D, limit int) ([]*entity.Incident, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	opts := options.Find().SetSort(bson.D{{"created_at", -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	collection := connection.Database(m.database).Collection(collectionIncidents)
	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var incidents []*entity.Incident
	if err = cursor.All(ctx, &incidents); err != nil {
		return nil, err
	}
	return incidents, nil
}

func (m *MongoDB) CountIncidents(ctx context.Context, guildID int64) (int64, error) {
	return m.countByGuild(ctx, collectionIncidents, guildID)
}

func (m *MongoDB) InsertFraudFlag(ctx context.Context, flag *entity.FraudFlag) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionFraudFlags)
	_, err = collection.InsertOne(ctx, flag)
	return err
}

// HasFraudFlag looks the member up across all guilds; the blacklist check
// is deliberately global.
func (m *MongoDB) HasFraudFlag(ctx context.Context, memberID int64, reason string) (bool, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return false, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionFraudFlags)
	filter := bson.D{{"member_id", memberID}, {"reason", reason}}
	count, err := collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (m *MongoDB) CountFraudFlags(ctx context.Context, guildID int64) (int64, error) {
	return m.countByGuild(ctx, collectionFraudFlags, guildID)
}

// FraudScores aggregates per-member average score and flag count for a
// guild, worst first.
func (m *MongoDB) FraudScores(ctx context.Context, guildID int64, limit int) ([]*entity.FraudScore, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	pipeline := mongo.Pipeline{
		bson.D{{"$match", bson.D{{"guild_id", guildID}}}},
		bson.D{{"$group", bson.D{
			{"_id", "$member_id"},
			{"avg_score", bson.D{{"$avg", "$score"}}},
			{"flags", bson.D{{"$sum", 1}}},
		}}},
		bson.D{{"$sort", bson.D{{"avg_score", -1}, {"flags", -1}}}},
		bson.D{{"$limit", limit}},
	}

	collection := connection.Database(m.database).Collection(collectionFraudFlags)
	cursor, err := collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var scores []*entity.FraudScore
	if err = cursor.All(ctx, &scores); err != nil {
		return nil, err
	}
	return scores, nil
}

// SecurityWindow computes the premium 24h aggregate in one pass per
// collection.
func (m *MongoDB) SecurityWindow(ctx context.Context, guildID int64, since time.Time) (*entity.WindowStats, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	stats := &entity.WindowStats{}
	db := connection.Database(m.database)

	windowFilter := bson.D{
		{"guild_id", guildID},
		{"created_at", bson.D{{"$gt", since}}},
	}
	if stats.Incidents24h, err = db.Collection(collectionIncidents).CountDocuments(ctx, windowFilter); err != nil {
		return nil, err
	}

	pipeline := mongo.Pipeline{
		bson.D{{"$match", windowFilter}},
		bson.D{{"$group", bson.D{
			{"_id", nil},
			{"count", bson.D{{"$sum", 1}}},
			{"avg_score", bson.D{{"$avg", "$score"}}},
		}}},
	}
	cursor, err := db.Collection(collectionFraudFlags).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var grouped []struct {
		Count    int64   `bson:"count"`
		AvgScore float64 `bson:"avg_score"`
	}
	if err = cursor.All(ctx, &grouped); err != nil {
		return nil, err
	}
	if len(grouped) > 0 {
		stats.FraudFlags24h = grouped[0].Count
		stats.AvgFraudScore24h = grouped[0].AvgScore
	}
	return stats, nil
}
