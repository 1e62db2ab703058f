package db

import (
	"log"

	"inkwell/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init(dsn string) {
	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Database connection established")

	err = DB.AutoMigrate(
		&models.Permission{},
		&models.Role{},
		&models.User{},
		&models.Category{},
		&models.Post{},
		&models.Comment{},
		&models.PostLike{},
		&models.Follow{},
		&models.PostView{},
		&models.Notification{},
	)
	if err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed")

	seedRoles()
	seedCategories()
}

var defaultPermissions = []models.Permission{
	{Name: models.PermReadPosts, Description: "Can read blog posts"},
	{Name: models.PermCreatePosts, Description: "Can create blog posts"},
	{Name: models.PermEditOwnPosts, Description: "Can edit own blog posts"},
	{Name: models.PermEditAllPosts, Description: "Can edit any blog post"},
	{Name: models.PermDeleteOwnPosts, Description: "Can delete own blog posts"},
	{Name: models.PermDeleteAllPosts, Description: "Can delete any blog post"},
	{Name: models.PermCreateComments, Description: "Can create comments"},
	{Name: models.PermEditOwnComments, Description: "Can edit own comments"},
	{Name: models.PermEditAllComments, Description: "Can edit any comment"},
	{Name: models.PermDeleteOwnComments, Description: "Can delete own comments"},
	{Name: models.PermDeleteAllComments, Description: "Can delete any comment"},
	{Name: models.PermModerateComments, Description: "Can moderate comments"},
	{Name: models.PermManageCategories, Description: "Can manage post categories"},
	{Name: models.PermManageUsers, Description: "Can manage user accounts"},
	{Name: models.PermViewAnalytics, Description: "Can view site analytics"},
	{Name: models.PermAdminAccess, Description: "Full administrative access"},
	{Name: models.PermAPIAccess, Description: "Can access API endpoints"},
	{Name: models.PermUploadFiles, Description: "Can upload files"},
	{Name: models.PermManageRoles, Description: "Can manage roles and permissions"},
	{Name: models.PermSendNotifications, Description: "Can send notifications to users"},
}

type roleDef struct {
	description string
	permissions []string
	isDefault   bool
}

var defaultRoles = map[string]roleDef{
	"Guest": {
		description: "Anonymous users with minimal access",
		permissions: []string{models.PermReadPosts},
	},
	"User": {
		description: "Regular registered users",
		permissions: []string{
			models.PermReadPosts, models.PermCreatePosts, models.PermEditOwnPosts,
			models.PermDeleteOwnPosts, models.PermCreateComments, models.PermEditOwnComments,
			models.PermDeleteOwnComments, models.PermUploadFiles,
		},
		isDefault: true,
	},
	"Moderator": {
		description: "Users who can moderate content",
		permissions: []string{
			models.PermReadPosts, models.PermCreatePosts, models.PermEditOwnPosts,
			models.PermDeleteOwnPosts, models.PermCreateComments, models.PermEditOwnComments,
			models.PermDeleteOwnComments, models.PermEditAllComments, models.PermDeleteAllComments,
			models.PermModerateComments, models.PermUploadFiles, models.PermViewAnalytics,
		},
	},
	"Editor": {
		description: "Users who can edit all content",
		permissions: []string{
			models.PermReadPosts, models.PermCreatePosts, models.PermEditOwnPosts,
			models.PermEditAllPosts, models.PermDeleteOwnPosts, models.PermCreateComments,
			models.PermEditOwnComments, models.PermDeleteOwnComments, models.PermEditAllComments,
			models.PermDeleteAllComments, models.PermModerateComments, models.PermManageCategories,
			models.PermUploadFiles, models.PermViewAnalytics, models.PermAPIAccess,
		},
	},
	"Administrator": {
		description: "Full system administrators",
		permissions: []string{
			models.PermReadPosts, models.PermCreatePosts, models.PermEditOwnPosts,
			models.PermEditAllPosts, models.PermDeleteOwnPosts, models.PermDeleteAllPosts,
			models.PermCreateComments, models.PermEditOwnComments, models.PermDeleteOwnComments,
			models.PermEditAllComments, models.PermDeleteAllComments, models.PermModerateComments,
			models.PermManageCategories, models.PermManageUsers, models.PermViewAnalytics,
			models.PermAdminAccess, models.PermAPIAccess, models.PermUploadFiles,
			models.PermManageRoles, models.PermSendNotifications,
		},
	},
}

// seedRoles creates the permission set and role matrix on first run, and
// backfills permissions added to existing roles on later runs.
func seedRoles() {
	for _, p := range defaultPermissions {
		var existing models.Permission
		if err := DB.Where("name = ?", p.Name).First(&existing).Error; err != nil {
			if err := DB.Create(&p).Error; err != nil {
				log.Printf("Failed to create permission %s: %v", p.Name, err)
			}
		}
	}

	var perms []models.Permission
	DB.Find(&perms)
	byName := make(map[string]models.Permission, len(perms))
	for _, p := range perms {
		byName[p.Name] = p
	}

	for name, def := range defaultRoles {
		var role models.Role
		err := DB.Preload("Permissions").Where("name = ?", name).First(&role).Error
		if err != nil {
			role = models.Role{Name: name, Description: def.description, IsDefault: def.isDefault}
			if err := DB.Create(&role).Error; err != nil {
				log.Printf("Failed to create role %s: %v", name, err)
				continue
			}
		}

		existing := make(map[string]bool, len(role.Permissions))
		for _, p := range role.Permissions {
			existing[p.Name] = true
		}
		var missing []models.Permission
		for _, permName := range def.permissions {
			if !existing[permName] {
				if p, ok := byName[permName]; ok {
					missing = append(missing, p)
				}
			}
		}
		if len(missing) > 0 {
			if err := DB.Model(&role).Association("Permissions").Append(missing); err != nil {
				log.Printf("Failed to attach permissions to role %s: %v", name, err)
			}
		}
	}
	log.Println("Roles and permissions seeded")
}

// DefaultRole returns the role assigned to new registrations.
func DefaultRole() (*models.Role, error) {
	var role models.Role
	if err := DB.Preload("Permissions").Where("is_default = ?", true).First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func seedCategories() {
	var count int64
	DB.Model(&models.Category{}).Count(&count)
	if count > 0 {
		return
	}

	categories := []models.Category{
		{Name: "General", Description: "Everything that fits nowhere else"},
		{Name: "Technology", Description: "Software, hardware and the web"},
		{Name: "Writing", Description: "Essays, fiction and craft"},
		{Name: "Life", Description: "Notes from everyday life"},
	}
	for _, c := range categories {
		if err := DB.Create(&c).Error; err != nil {
			log.Printf("Failed to create category %s: %v", c.Name, err)
		}
	}
	log.Println("Initial categories created")
}
