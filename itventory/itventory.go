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

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/google/go-querystring/query"

	"stash.kopano.io/kc/itventory/api"
)

// Client provides typed access to the ItVentory REST resources.
type Client struct {
	api *api.Client
}

// NewClient creates a Client which sends its requests with the provided
// API client.
func NewClient(c *api.Client) *Client {
	return &Client{
		api: c,
	}
}

func resourcePath(resource string, id string) string {
	return resource + "/" + url.PathEscape(id)
}

// Departments returns all departments.
func (c *Client) Departments(ctx context.Context) ([]*Department, error) {
	var departments []*Department
	err := c.api.Get(ctx, "/department", &departments)
	return departments, err
}

// CreateDepartment creates a department.
func (c *Client) CreateDepartment(ctx context.Context, r *CreateDepartmentRequest) error {
	return c.api.Post(ctx, "/department", r, nil)
}

// Employees returns all employees.
func (c *Client) Employees(ctx context.Context) ([]*Employee, error) {
	var employees []*Employee
	err := c.api.Get(ctx, "/employee", &employees)
	return employees, err
}

// Employee returns the employee with the provided id.
func (c *Client) Employee(ctx context.Context, id string) (*Employee, error) {
	employee := &Employee{}
	if err := c.api.Get(ctx, resourcePath("/employee", id), employee); err != nil {
		return nil, err
	}
	return employee, nil
}

// UpdateEmployee updates the employee with the provided id.
func (c *Client) UpdateEmployee(ctx context.Context, id string, r *UpdateEmployeeRequest) error {
	return c.api.Put(ctx, resourcePath("/employee", id), r, nil)
}

// Users returns all accounts of the identity service.
func (c *Client) Users(ctx context.Context) ([]*User, error) {
	var response struct {
		Users []*User `json:"users"`
	}
	err := c.api.Get(ctx, "/identity/users", &response)
	return response.Users, err
}

// CreateUser creates an account of the identity service.
func (c *Client) CreateUser(ctx context.Context, r *CreateUserRequest) error {
	return c.api.Post(ctx, "/Identity", r, nil)
}

// Me returns the account of the current session.
func (c *Client) Me(ctx context.Context) (*User, error) {
	user := &User{}
	if err := c.api.Get(ctx, "/Identity/me", user); err != nil {
		return nil, err
	}
	return user, nil
}

// Offices returns all offices.
func (c *Client) Offices(ctx context.Context) ([]*Office, error) {
	var offices []*Office
	err := c.api.Get(ctx, "/office", &offices)
	return offices, err
}

// Office returns the office with the provided id.
func (c *Client) Office(ctx context.Context, id string) (*Office, error) {
	office := &Office{}
	if err := c.api.Get(ctx, resourcePath("/office", id), office); err != nil {
		return nil, err
	}
	return office, nil
}

// Rooms returns the rooms matching the provided filter.
func (c *Client) Rooms(ctx context.Context, filter *RoomFilter) ([]*Room, error) {
	p := "/room"
	if filter != nil {
		values, err := query.Values(filter)
		if err != nil {
			return nil, fmt.Errorf("failed to encode room filter: %v", err)
		}
		if encoded := values.Encode(); encoded != "" {
			p = p + "?" + encoded
		}
	}

	var rooms []*Room
	err := c.api.Get(ctx, p, &rooms)
	return rooms, err
}

// CreateRoom creates a room.
func (c *Client) CreateRoom(ctx context.Context, r *CreateRoomRequest) error {
	return c.api.Post(ctx, "/room", r, nil)
}

// Producents returns all producents.
func (c *Client) Producents(ctx context.Context) ([]*Producent, error) {
	var producents []*Producent
	err := c.api.Get(ctx, "/producent", &producents)
	return producents, err
}

// Hardware returns all hardware items.
func (c *Client) Hardware(ctx context.Context) ([]*Hardware, error) {
	var hardware []*Hardware
	err := c.api.Get(ctx, "/hardware", &hardware)
	return hardware, err
}

// HardwareByID returns the hardware item with the provided id.
func (c *Client) HardwareByID(ctx context.Context, id string) (*Hardware, error) {
	hardware := &Hardware{}
	if err := c.api.Get(ctx, resourcePath("/hardware", id), hardware); err != nil {
		return nil, err
	}
	return hardware, nil
}

// CreateHardware creates a hardware item.
func (c *Client) CreateHardware(ctx context.Context, r *CreateHardwareRequest) error {
	return c.api.Post(ctx, "/hardware", r, nil)
}

// AddLogon records a logon on a hardware item.
func (c *Client) AddLogon(ctx context.Context, r *AddLogonRequest) error {
	return c.api.Post(ctx, "/hardware/logons", r, nil)
}

// ChangePrimaryUser changes the primary user of a hardware item.
func (c *Client) ChangePrimaryUser(ctx context.Context, r *ChangePrimaryUserRequest) error {
	return c.api.Put(ctx, "/hardware/primary-user", r, nil)
}

// Software returns all software products.
func (c *Client) Software(ctx context.Context) ([]*Software, error) {
	var software []*Software
	err := c.api.Get(ctx, "/software", &software)
	return software, err
}

// SoftwareByID returns the software product with the provided id.
func (c *Client) SoftwareByID(ctx context.Context, id string) (*Software, error) {
	software := &Software{}
	if err := c.api.Get(ctx, resourcePath("/software", id), software); err != nil {
		return nil, err
	}
	return software, nil
}

// CreateSoftware creates a software product.
func (c *Client) CreateSoftware(ctx context.Context, r *CreateSoftwareRequest) error {
	return c.api.Post(ctx, "/software", r, nil)
}

// AddSoftwareVersion adds a version to a software product.
func (c *Client) AddSoftwareVersion(ctx context.Context, r *AddSoftwareVersionRequest) error {
	return c.api.Put(ctx, "/software/version", r, nil)
}

// SetDefaultVersion marks a software version as the default version.
func (c *Client) SetDefaultVersion(ctx context.Context, r *SetDefaultVersionRequest) error {
	return c.api.Put(ctx, "/software/version/set-default", r, nil)
}

// Summary fetches the resource collections shown on the dashboard
// concurrently and returns their totals. The first error is returned.
func (c *Client) Summary(ctx context.Context) (*Summary, error) {
	summary := &Summary{}

	var wg sync.WaitGroup
	var mutex sync.Mutex
	var firstErr error
	fetch := func(fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				mutex.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mutex.Unlock()
			}
		}()
	}

	fetch(func() error {
		employees, err := c.Employees(ctx)
		summary.Employees = len(employees)
		return err
	})
	fetch(func() error {
		hardware, err := c.Hardware(ctx)
		summary.Hardware = len(hardware)
		for _, h := range hardware {
			if h.IsActive {
				summary.ActiveHardware++
			}
		}
		return err
	})
	fetch(func() error {
		software, err := c.Software(ctx)
		summary.Software = len(software)
		return err
	})
	fetch(func() error {
		departments, err := c.Departments(ctx)
		summary.Departments = len(departments)
		return err
	})
	fetch(func() error {
		offices, err := c.Offices(ctx)
		summary.Offices = len(offices)
		return err
	})

	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}

	return summary, nil
}
