package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sidhant-sriv/smart-renter/db"
	"github.com/sidhant-sriv/smart-renter/models"
	"github.com/sidhant-sriv/smart-renter/services"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var seedPassword string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert demo accounts and listings",
	Long: `Insert an admin, an owner and a tenant account plus a few approved
listings owned by the demo owner. Running it again is a no-op.

Accounts:
  admin@smartrenter.local
  owner@smartrenter.local
  tenant@smartrenter.local

Examples:
  smart-renter seed
  smart-renter seed --password s3cret-demo`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		conn, err := db.Open(cfg.DatabaseURL, cfg.IsDevelopment())
		if err != nil {
			return err
		}
		defer db.Close(conn)
		if err := db.Migrate(conn); err != nil {
			return err
		}

		auth := services.NewAuthService(conn, cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, logger)
		props := services.NewPropertyService(conn, cfg.PropertyTypes, nil, logger)
		created, err := seed(cmd.Context(), conn, auth, props, seedPassword, logger)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d listings\n", created)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedPassword, "password", "password123", "Password for the demo accounts")
}

type seedListing struct {
	title, description, address string
	propertyType, contact       string
	price, area                 float64
	bedrooms, bathrooms         int
	furnished, pets, parking    bool
	amenities                   []string
}

var seedListings = []seedListing{
	{
		title: "Sunny studio near the station", description: "Bright studio, five minutes from the metro.",
		address: "12 MG Road, Bengaluru", propertyType: "studio", contact: "+91 98450 00001",
		price: 14000, area: 38, bedrooms: 0, bathrooms: 1, furnished: true,
		amenities: []string{"wifi", "ac"},
	},
	{
		title: "Family 2BHK with balcony", description: "Quiet lane, covered parking and a south-facing balcony.",
		address: "44 Park Street, Kolkata", propertyType: "2bhk", contact: "+91 98450 00002",
		price: 26000, area: 92, bedrooms: 2, bathrooms: 2, pets: true, parking: true,
		amenities: []string{"balcony", "lift", "power backup"},
	},
	{
		title: "Shared double room", description: "Room for two in a shared flat, utilities included.",
		address: "7 FC Road, Pune", propertyType: "double", contact: "+91 98450 00003",
		price: 8000, area: 20, bedrooms: 1, bathrooms: 1, furnished: true,
		amenities: []string{"wifi", "laundry"},
	},
}

// seed creates the demo accounts and, when the owner has no listings yet,
// the demo listings. It returns how many listings were created.
func seed(ctx context.Context, conn *gorm.DB, auth *services.AuthService, props *services.PropertyService, password string, logger *slog.Logger) (int, error) {
	users := map[models.Role]*models.User{}
	for _, role := range []models.Role{models.RoleAdmin, models.RoleOwner, models.RoleTenant} {
		user, err := seedUser(ctx, conn, auth, role, password)
		if err != nil {
			return 0, err
		}
		users[role] = user
	}

	owner := &services.Principal{ID: users[models.RoleOwner].ID, Role: models.RoleOwner}
	admin := &services.Principal{ID: users[models.RoleAdmin].ID, Role: models.RoleAdmin}

	existing, err := props.ListByOwner(ctx, owner)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		logger.Info("demo listings already present", "count", len(existing))
		return 0, nil
	}

	for _, l := range seedListings {
		prop, err := props.Create(ctx, owner, services.PropertyInput{
			Title:              &l.title,
			Description:        &l.description,
			Address:            &l.address,
			Price:              &l.price,
			PropertyType:       &l.propertyType,
			Bedrooms:           &l.bedrooms,
			Bathrooms:          &l.bathrooms,
			Area:               &l.area,
			Furnished:          &l.furnished,
			PetsAllowed:        &l.pets,
			Parking:            &l.parking,
			Amenities:          &l.amenities,
			OwnerContactNumber: &l.contact,
		}, nil)
		if err != nil {
			return 0, fmt.Errorf("seed listing %q: %w", l.title, err)
		}
		if _, err := props.SetApprovalStatus(ctx, admin, prop.ID, models.ApprovalApproved); err != nil {
			return 0, err
		}
	}
	logger.Info("demo listings created", "count", len(seedListings))
	return len(seedListings), nil
}

func seedUser(ctx context.Context, conn *gorm.DB, auth *services.AuthService, role models.Role, password string) (*models.User, error) {
	email := string(role) + "@smartrenter.local"

	var user models.User
	err := conn.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	name := "Demo " + strings.ToUpper(string(role[:1])) + string(role[1:])
	return auth.CreateUser(ctx, services.SignupInput{Name: name, Email: email, Password: password, Role: role})
}
