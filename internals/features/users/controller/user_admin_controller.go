package controller

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zhuangyifan-666/web-task/internals/constants"
	helper "github.com/zhuangyifan-666/web-task/internals/helpers"

	registrationService "github.com/zhuangyifan-666/web-task/internals/features/registrations/service"
	"github.com/zhuangyifan-666/web-task/internals/features/users/dto"
	"github.com/zhuangyifan-666/web-task/internals/features/users/model"
)

// UserAdminController covers the admin-only account operations: listing,
// banning and deletion.
type UserAdminController struct {
	DB            *gorm.DB
	Registrations *registrationService.RegistrationService
	Validate      *validator.Validate
}

func NewUserAdminController(db *gorm.DB) *UserAdminController {
	return &UserAdminController{
		DB:            db,
		Registrations: registrationService.NewRegistrationService(db),
		Validate:      validator.New(),
	}
}

// GetAll lists accounts; ?search= matches username or email, ?role= and
// ?banned= narrow further.
func (ctrl *UserAdminController) GetAll(c *fiber.Ctx) error {
	paging := helper.ResolvePaging(c, 20, 100)

	query := ctrl.DB.Model(&model.UserModel{})
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		like := "%" + search + "%"
		query = query.Where("user_username LIKE ? OR user_email LIKE ?", like, like)
	}
	if role := c.Query("role"); role != "" {
		query = query.Where("user_role = ?", role)
	}
	if banned := c.Query("banned"); banned == "true" {
		query = query.Where("user_is_banned = ? OR user_is_active = ?", true, false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Failed to count users")
	}

	var users []model.UserModel
	err := query.
		Order("user_created_at DESC").
		Offset(paging.Offset).
		Limit(paging.Limit).
		Find(&users).Error
	if err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Failed to fetch users")
	}

	return helper.JsonList(c, "Users fetched successfully",
		dto.ToUserResponses(users),
		helper.BuildPagination(total, paging.Page, paging.PerPage))
}

func (ctrl *UserAdminController) GetByID(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid user ID")
	}

	var user model.UserModel
	if err := ctrl.DB.First(&user, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return helper.JsonError(c, fiber.StatusNotFound, "User not found")
		}
		return helper.JsonError(c, fiber.StatusInternalServerError, "Failed to fetch user")
	}
	return helper.JsonOK(c, "User fetched successfully", dto.ToUserResponse(&user))
}

// Ban blocks an account from participating and commenting. Admins cannot
// ban other admins.
func (ctrl *UserAdminController) Ban(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid user ID")
	}

	var req dto.BanUserRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return helper.JsonError(c, fiber.StatusBadRequest, "Invalid request body")
		}
		if err := ctrl.Validate.Struct(req); err != nil {
			return helper.JsonValidationError(c, err)
		}
	}

	var user model.UserModel
	if err := ctrl.DB.First(&user, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return helper.JsonError(c, fiber.StatusNotFound, "User not found")
		}
		return helper.JsonError(c, fiber.StatusInternalServerError, "Failed to fetch user")
	}

	if constants.IsAdminRole(user.Role) && helper.GetUserRole(c) != constants.RoleSuperAdmin {
		return helper.JsonError(c, fiber.StatusForbidden, "Only a superadmin may ban admin accounts")
	}

	reason := req.Reason
	if reason == "" {
		reason = "Banned by administrator"
	}

	err = ctrl.DB.Model(&user).Updates(map[string]any{
		"user_is_active":  false,
		"user_is_banned":  true,
		"user_ban_reason": reason,
	}).Error
	if err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Failed to ban user")
	}
	return helper.JsonUpdated(c, "User banned successfully", nil)
}

// Unban restores a banned account.
func (ctrl *UserAdminController) Unban(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid user ID")
	}

	var user model.UserModel
	if err := ctrl.DB.First(&user, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return helper.JsonError(c, fiber.StatusNotFound, "User not found")
		}
		return helper.JsonError(c, fiber.StatusInternalServerError, "Failed to fetch user")
	}

	err = ctrl.DB.Model(&user).Updates(map[string]any{
		"user_is_active":  true,
		"user_is_banned":  false,
		"user_ban_reason": "",
	}).Error
	if err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Failed to unban user")
	}
	return helper.JsonUpdated(c, "User unbanned successfully", nil)
}

// Delete removes an account. Superadmin only (route-gated); active
// registrations are cancelled first so confirmed seats free up.
func (ctrl *UserAdminController) Delete(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid user ID")
	}

	actorID, err := helper.GetUserUUID(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	if actorID == userID {
		return helper.JsonError(c, fiber.StatusUnprocessableEntity, "You cannot delete your own account")
	}

	err = ctrl.DB.Transaction(func(tx *gorm.DB) error {
		var user model.UserModel
		if err := tx.First(&user, "user_id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "User not found")
			}
			return err
		}

		if err := ctrl.Registrations.CancelAllForUser(tx, userID); err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	return helper.JsonDeleted(c, "User deleted successfully", nil)
}
