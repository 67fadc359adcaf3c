package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/assistlink/assistlink_backend/database"
	"github.com/assistlink/assistlink_backend/models"
	"github.com/assistlink/assistlink_backend/services"
)

type CaregiverProfileBody struct {
	Skills               []string               `json:"skills"`
	Qualifications       []string               `json:"qualifications"`
	ExperienceYears      *int                   `json:"experience_years" validate:"omitempty,gte=0,lte=70"`
	Bio                  *string                `json:"bio"`
	HourlyRate           *float64               `json:"hourly_rate" validate:"omitempty,gt=0"`
	AvailabilityStatus   *string                `json:"availability_status" validate:"omitempty,oneof=available unavailable"`
	AvailabilitySchedule map[string]interface{} `json:"availability_schedule"`
}

// UpsertCaregiverProfile creates or updates the caller's caregiver profile.
func UpsertCaregiverProfile(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, err := uuid.Parse(claims["user_id"].(string))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req CaregiverProfileBody
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var profile models.CaregiverProfile
	err = database.DB.Where("user_id = ?", userID).First(&profile).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load profile"})
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		profile = models.CaregiverProfile{UserID: userID, AvailabilityStatus: "unavailable"}
		applyProfileBody(&profile, &req)
		if err := database.DB.Create(&profile).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create profile"})
		}
		return c.Status(fiber.StatusCreated).JSON(profile)
	}

	applyProfileBody(&profile, &req)
	if err := database.DB.Save(&profile).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update profile"})
	}
	return c.JSON(profile)
}

func applyProfileBody(profile *models.CaregiverProfile, req *CaregiverProfileBody) {
	if req.Skills != nil {
		profile.Skills = datatypes.NewJSONSlice(req.Skills)
	}
	if req.Qualifications != nil {
		profile.Qualifications = datatypes.NewJSONSlice(req.Qualifications)
	}
	if req.ExperienceYears != nil {
		profile.ExperienceYears = req.ExperienceYears
	}
	if req.Bio != nil {
		profile.Bio = req.Bio
	}
	if req.HourlyRate != nil {
		profile.HourlyRate = req.HourlyRate
	}
	if req.AvailabilityStatus != nil {
		profile.AvailabilityStatus = *req.AvailabilityStatus
	}
	if req.AvailabilitySchedule != nil {
		profile.AvailabilitySchedule = datatypes.JSONMap(req.AvailabilitySchedule)
	}
}

func GetMyCaregiverProfile(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, err := uuid.Parse(claims["user_id"].(string))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var profile models.CaregiverProfile
	if err := database.DB.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Caregiver profile not found"})
	}
	return c.JSON(profile)
}

// SetAvailabilityStatus is the manual availability toggle. It only records a
// preference; active engagements keep the caregiver off the market no matter
// what this is set to.
func SetAvailabilityStatus(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, err := uuid.Parse(claims["user_id"].(string))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	type Request struct {
		AvailabilityStatus string `json:"availability_status" validate:"required,oneof=available unavailable"`
	}
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := services.SetCaregiverAvailability(database.DB, userID, req.AvailabilityStatus); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update availability"})
	}
	return c.JSON(fiber.Map{"availability_status": req.AvailabilityStatus})
}

type CaregiverListing struct {
	ID              string                   `json:"id"`
	FullName        string                   `json:"full_name"`
	ProfilePhotoURL *string                  `json:"profile_photo_url"`
	Profile         *models.CaregiverProfile `json:"caregiver_profile"`
}

// ListCaregivers is the marketplace search. Caregivers with active bookings
// or video calls are filtered out at read time so a stale profile flag can
// never advertise someone who is mid-engagement.
func ListCaregivers(c *fiber.Ctx) error {
	minRating, _ := strconv.ParseFloat(c.Query("min_rating", "0"), 64)
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var users []models.User
	err := database.DB.Where("role = ? AND is_active = ?", "caregiver", true).
		Order("created_at DESC").Find(&users).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch caregivers"})
	}

	statusFilter := c.Query("availability_status")
	var skillsFilter []string
	if raw := c.Query("skills"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
				skillsFilter = append(skillsFilter, s)
			}
		}
	}

	listings := make([]CaregiverListing, 0, len(users))
	for _, user := range users {
		var profile *models.CaregiverProfile
		var p models.CaregiverProfile
		if err := database.DB.Where("user_id = ?", user.ID).First(&p).Error; err == nil {
			profile = &p
		}

		if statusFilter != "" {
			stored := "unavailable"
			if profile != nil {
				stored = profile.AvailabilityStatus
			}
			if stored != statusFilter {
				continue
			}
		}
		if minRating > 0 && (profile == nil || profile.AvgRating < minRating) {
			continue
		}
		if len(skillsFilter) > 0 && (profile == nil || !hasAnySkill(profile.Skills, skillsFilter)) {
			continue
		}
		if !services.IsDiscoverable(database.DB, user.ID, profile) {
			continue
		}

		listings = append(listings, CaregiverListing{
			ID:              user.ID.String(),
			FullName:        user.FullName,
			ProfilePhotoURL: user.ProfilePhotoURL,
			Profile:         profile,
		})
	}

	end := offset + limit
	if offset > len(listings) {
		offset = len(listings)
	}
	if end > len(listings) {
		end = len(listings)
	}

	return c.JSON(fiber.Map{
		"caregivers": listings[offset:end],
		"total":      len(listings),
	})
}

// hasAnySkill reports whether any wanted skill appears in the profile's
// skill list, case insensitive.
func hasAnySkill(skills datatypes.JSONSlice[string], wanted []string) bool {
	for _, have := range skills {
		have = strings.ToLower(have)
		for _, want := range wanted {
			if have == want {
				return true
			}
		}
	}
	return false
}

func GetCaregiver(c *fiber.Ctx) error {
	caregiverID, err := uuid.Parse(c.Params("caregiverId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid caregiver id"})
	}

	var user models.User
	if err := database.DB.Where("id = ? AND role = ?", caregiverID, "caregiver").First(&user).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Caregiver not found"})
	}

	listing := CaregiverListing{
		ID:              user.ID.String(),
		FullName:        user.FullName,
		ProfilePhotoURL: user.ProfilePhotoURL,
	}
	var profile models.CaregiverProfile
	if err := database.DB.Where("user_id = ?", user.ID).First(&profile).Error; err == nil {
		listing.Profile = &profile
	}
	return c.JSON(listing)
}
