package organizations

import (
	"context"
	"fmt"
	"log"

	"github.com/samber/mo"

	"formrelay/core"
	"formrelay/db"
	"formrelay/models"
	"formrelay/signupnotif"
)

type OrganizationsService struct {
	organizationsRepo *db.PostgresOrganizationsRepository
}

func NewOrganizationsService(repo *db.PostgresOrganizationsRepository) *OrganizationsService {
	return &OrganizationsService{organizationsRepo: repo}
}

func (s *OrganizationsService) CreateOrganization(ctx context.Context) (*models.Organization, error) {
	log.Printf("📋 Starting to create organization")

	secretKey, err := core.NewSecretKey("sk")
	if err != nil {
		return nil, fmt.Errorf("failed to generate organization secret key: %w", err)
	}

	organization := &models.Organization{
		ID:        models.OrgID(core.NewID("org")),
		Active:    true,
		SecretKey: &secretKey,
	}

	if err := s.organizationsRepo.CreateOrganization(ctx, organization); err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	signupnotif.New(organization.ID, "New organization signed up")

	log.Printf("📋 Completed successfully - created organization with ID: %s", organization.ID)
	return organization, nil
}

func (s *OrganizationsService) GetOrganizationByID(
	ctx context.Context,
	id models.OrgID,
) (mo.Option[*models.Organization], error) {
	log.Printf("📋 Starting to get organization by ID: %s", id)
	if !core.IsValidULID(string(id)) {
		return mo.None[*models.Organization](), fmt.Errorf("organization ID must be a valid ULID")
	}

	organization, err := s.organizationsRepo.GetOrganizationByID(ctx, id)
	if err != nil {
		return mo.None[*models.Organization](), fmt.Errorf("failed to get organization by ID: %w", err)
	}

	if organization.IsPresent() {
		log.Printf("📋 Completed successfully - retrieved organization with ID: %s", id)
	} else {
		log.Printf("📋 Completed successfully - organization not found with ID: %s", id)
	}
	return organization, nil
}

func (s *OrganizationsService) GetOrganizationBySecretKey(
	ctx context.Context,
	secretKey string,
) (mo.Option[*models.Organization], error) {
	log.Printf("📋 Starting to get organization by secret key")
	if secretKey == "" {
		return mo.None[*models.Organization](), fmt.Errorf("secret key cannot be empty")
	}

	maybeOrg, err := s.organizationsRepo.GetOrganizationBySecretKey(ctx, secretKey)
	if err != nil {
		return mo.None[*models.Organization](), fmt.Errorf("failed to get organization by secret key: %w", err)
	}

	return maybeOrg, nil
}

func (s *OrganizationsService) DeactivateOrganization(ctx context.Context, id models.OrgID) error {
	log.Printf("📋 Starting to deactivate organization: %s", id)
	if !core.IsValidULID(string(id)) {
		return fmt.Errorf("organization ID must be a valid ULID")
	}

	if err := s.organizationsRepo.DeactivateOrganization(ctx, id); err != nil {
		return fmt.Errorf("failed to deactivate organization: %w", err)
	}

	log.Printf("📋 Completed successfully - deactivated organization: %s", id)
	return nil
}
