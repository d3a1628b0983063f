/*
 * Copyright 2020 Kopano and its licensors
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License, version 3,
 * as published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

package itventory

// Person is the short form of an employee as embedded in other resources.
type Person struct {
	ID           string `json:"id"`
	FullName     string `json:"fullName"`
	Seniority    string `json:"seniority"`
	PositionName string `json:"positionName"`
}

// Department is an organizational unit.
type Department struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Manager *Person `json:"manager,omitempty"`
}

// Room is a room of an office.
type Room struct {
	ID                  string  `json:"id,omitempty"`
	OfficeID            string  `json:"officeId,omitempty"`
	RoomName            string  `json:"roomName"`
	Floor               int     `json:"floor"`
	Area                float64 `json:"area,omitempty"`
	Capacity            int     `json:"capacity,omitempty"`
	PersonResponsibleID string  `json:"personResponsibleId,omitempty"`
	PersonResponsible   *Person `json:"personResponsible,omitempty"`
}

// Employee is a member of staff.
type Employee struct {
	ID           string      `json:"id"`
	Username     string      `json:"username"`
	Name         *string     `json:"name"`
	LastName     *string     `json:"lastName"`
	IsActive     bool        `json:"isActive"`
	Area         *string     `json:"area"`
	PositionName *string     `json:"positionName"`
	Seniority    *string     `json:"seniority"`
	ManagerID    *string     `json:"managerId,omitempty"`
	DepartmentID *string     `json:"departmentId,omitempty"`
	HireDate     *string     `json:"hireDate"`
	BirthDate    *string     `json:"birthDate"`
	RoomID       *string     `json:"roomId,omitempty"`
	Manager      *Person     `json:"manager,omitempty"`
	Department   *Department `json:"department,omitempty"`
	Room         *Room       `json:"room,omitempty"`
}

// User is an account of the identity service.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Location is the site of an office.
type Location struct {
	ID          string  `json:"id"`
	CountryID   string  `json:"countryId"`
	CountryName string  `json:"countryName"`
	Name        string  `json:"name"`
	ZipCode     string  `json:"zipCode"`
	City        string  `json:"city"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	TypeOfPlant string  `json:"typeOfPlant"`
}

// Office is a building of the organization.
type Office struct {
	ID             string    `json:"id"`
	Street         string    `json:"street"`
	BuildingNumber string    `json:"buildingNumber"`
	FullAddress    string    `json:"fullAddress"`
	LocationID     string    `json:"locationId"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	IsActive       bool      `json:"isActive"`
	Location       *Location `json:"location,omitempty"`
}

// Producent is a manufacturer of hardware or a publisher of software.
type Producent struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CountryName string `json:"countryName"`
}

// Model is a hardware model.
type Model struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	ProducentID string     `json:"producentId"`
	ReleaseDate string     `json:"releaseDate"`
	Comments    string     `json:"comments"`
	Producent   *Producent `json:"producent,omitempty"`
}

// HardwareRef is the short form of a hardware item as embedded in logons.
type HardwareRef struct {
	ID           string `json:"id"`
	SerialNumber string `json:"serialNumber"`
	HardwareType string `json:"hardwareType"`
}

// Logon is a recorded sign in of a user on a hardware item.
type Logon struct {
	ID         string       `json:"id"`
	UserID     string       `json:"userId"`
	HardwareID string       `json:"hardwareId"`
	Domain     string       `json:"domain"`
	LogonTime  string       `json:"logonTime"`
	IPAddress  string       `json:"ipAddress"`
	User       *Person      `json:"user,omitempty"`
	Hardware   *HardwareRef `json:"hardware,omitempty"`
}

// Hardware is an inventory item.
type Hardware struct {
	ID            string      `json:"id"`
	PrimaryUserID string      `json:"primaryUserId"`
	DefaultDomain string      `json:"defaultDomain"`
	HardwareType  string      `json:"hardwareType"`
	IsActive      bool        `json:"isActive"`
	Description   string      `json:"description"`
	Worth         float64     `json:"worth"`
	ProducentID   string      `json:"producentId"`
	ModelID       string      `json:"modelId"`
	ModelYear     int         `json:"modelYear"`
	SerialNumber  string      `json:"serialNumber"`
	PurchasedDate string      `json:"purchasedDate"`
	RoomID        string      `json:"roomId"`
	DepartmentID  string      `json:"departmentId"`
	Logons        []*Logon    `json:"logons,omitempty"`
	PrimaryUser   *Person     `json:"primaryUser,omitempty"`
	Producent     *Producent  `json:"producent,omitempty"`
	Model         *Model      `json:"model,omitempty"`
	Room          *Room       `json:"room,omitempty"`
	Department    *Department `json:"department,omitempty"`
}

// SoftwareVersion is a released version of a software product.
type SoftwareVersion struct {
	ID            string  `json:"id"`
	VersionNumber string  `json:"versionNumber"`
	SoftwareID    string  `json:"softwareId"`
	Price         float64 `json:"price"`
	Published     string  `json:"published"`
	IsDefault     bool    `json:"isDefault"`
	IsApproved    bool    `json:"isApproved"`
	IsActive      bool    `json:"isActive"`
	LicenseType   string  `json:"licenseType"`
}

// Software is a software product.
type Software struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	PublisherID  string             `json:"publisherId"`
	ApprovalType string             `json:"approvalType"`
	Publisher    *Producent         `json:"publisher,omitempty"`
	Versions     []*SoftwareVersion `json:"versions,omitempty"`
}

// Request bodies.

// CreateDepartmentRequest creates a department.
type CreateDepartmentRequest struct {
	Name      string `json:"name"`
	ManagerID string `json:"managerId"`
}

// UpdateEmployeeRequest updates an employee.
type UpdateEmployeeRequest struct {
	Name         string `json:"name"`
	LastName     string `json:"lastName"`
	Area         string `json:"area"`
	PositionName string `json:"positionName"`
	Seniority    string `json:"seniority"`
	ManagerID    string `json:"managerId,omitempty"`
	DepartmentID string `json:"departmentId,omitempty"`
	HireDate     string `json:"hireDate,omitempty"`
	BirthDate    string `json:"birthDate,omitempty"`
	RoomID       string `json:"roomId,omitempty"`
}

// CreateUserRequest creates an account of the identity service.
type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

// CreateRoomRequest creates a room in an office.
type CreateRoomRequest struct {
	OfficeID          string  `json:"officeId"`
	Name              string  `json:"name"`
	Floor             int     `json:"floor"`
	Area              float64 `json:"area"`
	Capacity          int     `json:"capacity"`
	PersonResponsible string  `json:"personResponsible,omitempty"`
}

// RoomFilter selects the rooms returned by Rooms.
type RoomFilter struct {
	OfficeID string `url:"OfficeId,omitempty"`
	RoomName string `url:"RoomName,omitempty"`
}

// CreateHardwareRequest creates a hardware item.
type CreateHardwareRequest struct {
	PrimaryUserID string  `json:"primaryUserId"`
	DefaultDomain string  `json:"defaultDomain"`
	HardwareType  string  `json:"hardwareType"`
	Description   string  `json:"description"`
	Worth         float64 `json:"worth"`
	ProducentID   string  `json:"producentId"`
	ModelID       string  `json:"modelId"`
	ModelYear     int     `json:"modelYear"`
	SerialNumber  string  `json:"serialNumber"`
	PurchasedDate string  `json:"purchasedDate"`
	RoomID        string  `json:"roomId"`
	DepartmentID  string  `json:"departmentId"`
}

// AddLogonRequest records a logon on a hardware item.
type AddLogonRequest struct {
	HardwareID string `json:"hardwareId"`
	UserID     string `json:"userId"`
	Domain     string `json:"domain"`
	IPAddress  string `json:"ipAddress"`
}

// ChangePrimaryUserRequest changes the primary user of a hardware item.
type ChangePrimaryUserRequest struct {
	HardwareID string `json:"hardwareId"`
	UserID     string `json:"userId"`
}

// CreateSoftwareRequest creates a software product.
type CreateSoftwareRequest struct {
	Name         string `json:"name"`
	PublisherID  string `json:"publisherId"`
	ApprovalType string `json:"approvalType"`
}

// AddSoftwareVersionRequest adds a version to a software product.
type AddSoftwareVersionRequest struct {
	SoftwareID    string  `json:"softwareId"`
	VersionNumber string  `json:"versionNumber"`
	Price         float64 `json:"price"`
	Published     string  `json:"published"`
	LicenseType   string  `json:"licenseType"`
}

// SetDefaultVersionRequest marks a software version as default.
type SetDefaultVersionRequest struct {
	SoftwareID string `json:"softwareId"`
	VersionID  string `json:"versionId"`
}

// Summary holds the inventory totals shown on the dashboard.
type Summary struct {
	Employees   int `json:"employees"`
	Hardware    int `json:"hardware"`
	Software    int `json:"software"`
	Departments int `json:"departments"`
	Offices     int `json:"offices"`

	ActiveHardware int `json:"activeHardware"`
}
