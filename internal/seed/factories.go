// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"pwani/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// coastTowns anchor seeded profiles along the Kenyan coast. Coordinates are
// town centers; individual profiles get a few kilometers of jitter.
var coastTowns = []struct {
	name     string
	lat, lng float64
}{
	{"Mombasa", -4.0435, 39.6682},
	{"Diani", -4.2798, 39.5943},
	{"Kilifi", -3.6305, 39.8499},
	{"Malindi", -3.2192, 40.1169},
	{"Watamu", -3.3541, 40.0207},
	{"Lamu", -2.2717, 40.9020},
}

var interestPool = []string{
	"beach walks", "swahili food", "snorkeling", "matatu art", "afrobeats",
	"photography", "hiking", "cooking", "football", "reading", "yoga",
	"travel", "dancing", "live music", "board games", "surfing", "coffee",
	"volunteering", "fishing", "tech",
}

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by the seeder and tests.
type Factory struct {
	db *gorm.DB
	r  *rand.Rand
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB) *Factory {
	// seed gofakeit for richer content
	gofakeit.Seed(time.Now().UnixNano())
	//nolint:gosec // Weak random number generator is fine for seeding
	return &Factory{db: db, r: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// BuildUser constructs a complete dating profile without persisting it.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	gender := models.GenderFemale
	prefGenders := models.StringList{models.GenderMale}
	if f.r.Intn(2) == 0 {
		gender = models.GenderMale
		prefGenders = models.StringList{models.GenderFemale}
	}

	first := gofakeit.FirstName()
	last := gofakeit.LastName()
	town := coastTowns[f.r.Intn(len(coastTowns))]

	// ~0.01 degrees is roughly a kilometer; spread people around town
	lat := town.lat + (f.r.Float64()-0.5)*0.2
	lng := town.lng + (f.r.Float64()-0.5)*0.2

	age := 18 + f.r.Intn(28)
	dob := time.Now().AddDate(-age, -f.r.Intn(12), -f.r.Intn(28))

	ageMin := 18 + f.r.Intn(10)
	ageMax := ageMin + 5 + f.r.Intn(15)

	interests := make(models.StringList, 0, 5)
	for _, idx := range f.r.Perm(len(interestPool))[:3+f.r.Intn(3)] {
		interests = append(interests, interestPool[idx])
	}

	photos := models.StringList{
		fmt.Sprintf("https://picsum.photos/seed/%s/600/800", gofakeit.UUID()),
		fmt.Sprintf("https://picsum.photos/seed/%s/600/800", gofakeit.UUID()),
	}

	user := &models.User{
		Email:             fmt.Sprintf("%s.%s.%d@example.com", first, last, f.r.Intn(100000)),
		Password:          demoPasswordHash(),
		FirstName:         first,
		LastName:          last,
		DateOfBirth:       dob,
		Gender:            gender,
		Bio:               gofakeit.HipsterSentence(10),
		Photos:            photos,
		Interests:         interests,
		Latitude:          &lat,
		Longitude:         &lng,
		PrefAgeMin:        ageMin,
		PrefAgeMax:        ageMax,
		PrefMaxDistanceKm: 20 + f.r.Intn(180),
		PrefGenders:       prefGenders,
		IsProfileComplete: true,
		IsVerified:        f.r.Float32() < 0.3,
	}

	for _, override := range overrides {
		override(user)
	}
	return user
}

// CreateUser builds and persists a profile.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(overrides...)
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreateLike persists a one-directional like edge. Duplicate edges are
// silently ignored so callers can layer likes on top of each other.
func (f *Factory) CreateLike(fromID, toID uint) error {
	return f.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.LikeEdge{FromUserID: fromID, ToUserID: toID}).Error
}

// CreateMatch persists both like edges and the normalized match row.
func (f *Factory) CreateMatch(userX, userY uint) (*models.Match, error) {
	if err := f.CreateLike(userX, userY); err != nil {
		return nil, err
	}
	if err := f.CreateLike(userY, userX); err != nil {
		return nil, err
	}
	a, b := models.NormalizePair(userX, userY)
	match := &models.Match{UserAID: a, UserBID: b}
	if err := f.db.Create(match).Error; err != nil {
		return nil, err
	}
	return match, nil
}

// CreateMessage persists a message and refreshes the match summary columns.
func (f *Factory) CreateMessage(match *models.Match, senderID uint, body string) error {
	msg := &models.Message{
		MatchID:  match.ID,
		SenderID: senderID,
		Body:     body,
		Kind:     "text",
	}
	if err := f.db.Create(msg).Error; err != nil {
		return err
	}
	return f.db.Model(match).Updates(map[string]interface{}{
		"last_message_text":      body,
		"last_message_sender_id": senderID,
		"last_message_at":        msg.CreatedAt,
	}).Error
}

var cachedDemoHash string

// demoPasswordHash hashes the shared demo password once; bcrypt is slow and
// every seeded profile uses the same credentials.
func demoPasswordHash() string {
	if cachedDemoHash == "" {
		h, _ := bcrypt.GenerateFromPassword([]byte("PwaniDemo123!"), bcrypt.MinCost)
		cachedDemoHash = string(h)
	}
	return cachedDemoHash
}
