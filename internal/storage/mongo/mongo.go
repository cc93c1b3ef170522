// mongo — реализация storage.Storage поверх MongoDB.
// Уникальность email обеспечивается уникальным индексом по нормализованному email,
// записи об отзыве токенов удаляются TTL-индексом по expires_at.
package mongo

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/pribylovaa/agrichain-auth/internal/storage"
)

const (
	usersCollection   = "users"
	revokedCollection = "revoked_tokens"
	defaultDBName     = "agrichain"
)

// Storage - тонкий адаптер для подключения и коллекций MongoDB.
type Storage struct {
	client  *mongodriver.Client
	db      *mongodriver.Database
	users   *mongodriver.Collection
	revoked *mongodriver.Collection
}

// New подключается к MongoDB, проверяет соединение и создаёт индексы.
func New(ctx context.Context, uri string) (*Storage, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo: empty uri")
	}

	cli, err := mongodriver.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := cli.Ping(ctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := cli.Database(databaseFromURI(uri))

	s := &Storage{
		client:  cli,
		db:      db,
		users:   db.Collection(usersCollection),
		revoked: db.Collection(revokedCollection),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

// Ping проверяет доступность primary (для /healthz).
func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close отключает клиента MongoDB.
func (s *Storage) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_ = s.client.Disconnect(ctx)
}

// ensureIndexes создаёт индексы:
// - users: уникальный email, role + created_at(desc) для выборок админки;
// - revoked_tokens: TTL по expires_at (expireAfterSeconds=0 -> берётся время из документа).
func (s *Storage) ensureIndexes(ctx context.Context) error {
	userIdx := []mongodriver.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("uniq_email").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "role", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("role_created_desc"),
		},
	}

	if _, err := s.users.Indexes().CreateMany(ctx, userIdx); err != nil {
		return fmt.Errorf("mongo ensure user indexes: %w", err)
	}

	revokedIdx := []mongodriver.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("ttl_expires_at").SetExpireAfterSeconds(0),
		},
	}

	if _, err := s.revoked.Indexes().CreateMany(ctx, revokedIdx); err != nil {
		return fmt.Errorf("mongo ensure revoked indexes: %w", err)
	}

	return nil
}

// databaseFromURI извлекает имя базы данных из URI-пути mongodb.
// Если оно отсутствует или не поддается расшифровке, возвращает значение по умолчанию.
func databaseFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err == nil {
		if name := strings.Trim(u.Path, "/"); name != "" {
			return name
		}
	}

	return defaultDBName
}

var _ storage.Storage = (*Storage)(nil)
