package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"inviteguard/entity"
	"inviteguard/internal/config"
)

const (
	collectionGuilds     = "guilds"
	collectionInvites    = "invites"
	collectionJoins      = "invite_joins"
	collectionLeaves     = "invite_leaves"
	collectionStats      = "user_invite_stats"
	collectionBonuses    = "bonus_invites"
	collectionIncidents  = "incidents"
	collectionFraudFlags = "fraud_flags"
	collectionLicenses   = "premium_licenses"
	collectionOperators  = "operators"
)

type MongoDB struct {
	clientOptions *options.ClientOptions
	database      string
}

func NewMongoClient(conf *config.Config) *MongoDB {
	if !conf.Mongo.Enabled {
		return nil
	}
	connectionUri := fmt.Sprintf("mongodb://%s:%s", conf.Mongo.Host, conf.Mongo.Port)
	clientOptions := options.Client().ApplyURI(connectionUri)
	if conf.Mongo.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.Mongo.User,
			Password:   conf.Mongo.Password,
			AuthSource: conf.Mongo.Database,
		})
	}
	return &MongoDB{
		clientOptions: clientOptions,
		database:      conf.Mongo.Database,
	}
}

func (m *MongoDB) connect(ctx context.Context) (*mongo.Client, error) {
	connection, err := mongo.Connect(ctx, m.clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	return connection, nil
}

func (m *MongoDB) disconnect(ctx context.Context, connection *mongo.Client) {
	_ = connection.Disconnect(ctx)
}

func (m *MongoDB) findError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	return fmt.Errorf("mongodb find: %w", err)
}

// EnsureGuild upserts the settings row: defaults apply only on first
// contact, the name and updated_at refresh on every call.
func (m *MongoDB) EnsureGuild(ctx context.Context, settings *entity.GuildSettings) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionGuilds)
	filter := bson.D{{"guild_id", settings.GuildID}}
	update := bson.D{
		{"$set", bson.D{
			{"guild_name", settings.GuildName},
			{"updated_at", time.Now().UTC()},
		}},
		{"$setOnInsert", bson.D{
			{"join_burst_count", settings.JoinBurstCount},
			{"join_burst_window_seconds", settings.JoinBurstWindowSeconds},
			{"min_account_age_hours", settings.MinAccountAgeHours},
			{"auto_kick_young_accounts", settings.AutoKickYoungAccounts},
			{"link_spam_threshold", settings.LinkSpamThreshold},
			{"link_spam_window_seconds", settings.LinkSpamWindowSeconds},
			{"lockdown_enabled", false},
			{"lockdown_slowmode_seconds", settings.LockdownSlowmodeSeconds},
			{"quarantine_role_name", settings.QuarantineRoleName},
			{"security_log_channel_id", int64(0)},
			{"is_premium", false},
		}},
	}
	opts := options.Update().SetUpsert(true)
	_, err = collection.UpdateOne(ctx, filter, update, opts)
	return err
}

// GuildSettings returns nil, nil for an unknown guild.
func (m *MongoDB) GuildSettings(ctx context.Context, guildID int64) (*entity.GuildSettings, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionGuilds)
	filter := bson.D{{"guild_id", guildID}}
	var settings entity.GuildSettings
	err = collection.FindOne(ctx, filter).Decode(&settings)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, m.findError(err)
	}
	return &settings, nil
}

func (m *MongoDB) SetLockdown(ctx context.Context, guildID int64, enabled bool) error {
	return m.setGuildFields(ctx, guildID, bson.D{{"lockdown_enabled", enabled}})
}

func (m *MongoDB) SetLogChannel(ctx context.Context, guildID, channelID int64) error {
	return m.setGuildFields(ctx, guildID, bson.D{{"security_log_channel_id", channelID}})
}

func (m *MongoDB) SetGuildPremium(ctx context.Context, guildID int64, licenseID string, until *time.Time) error {
	return m.setGuildFields(ctx, guildID, bson.D{
		{"is_premium", true},
		{"premium_license_id", licenseID},
		{"premium_until", until},
	})
}

func (m *MongoDB) setGuildFields(ctx context.Context, guildID int64, fields bson.D) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionGuilds)
	filter := bson.D{{"guild_id", guildID}}
	update := bson.D{{"$set", append(fields, bson.E{Key: "updated_at", Value: time.Now().UTC()})}}
	_, err = collection.UpdateOne(ctx, filter, update)
	return err
}

// GetOperator returns nil, nil for an unknown token.
func (m *MongoDB) GetOperator(ctx context.Context, token string) (*entity.Operator, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionOperators)
	filter := bson.D{{"token", token}}
	var op entity.Operator
	err = collection.FindOne(ctx, filter).Decode(&op)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, m.findError(err)
	}
	return &op, nil
}
