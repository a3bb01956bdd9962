// config/security_config.go
package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityAccess                      // Bearer access token required
	SecurityStaff                       // Access token with staff or admin role
)

// Route names used by the HTTP router. Each maps to a security level below.
const (
	RouteRegister          = "auth.register"
	RouteLogin             = "auth.login"
	RouteMe                = "auth.me"
	RouteListProducts      = "products.list"
	RouteGetProduct        = "products.get"
	RouteProductAvailable  = "products.availability"
	RouteCreateProduct     = "products.create"
	RouteListCategories    = "categories.list"
	RouteCreateCategory    = "categories.create"
	RouteCreateOrder       = "orders.create"
	RouteMyOrders          = "orders.mine"
	RouteListOrders        = "orders.list"
	RouteGetOrder          = "orders.get"
	RouteUpdateOrderStatus = "orders.status"
	RouteCancelOrder       = "orders.cancel"
	RouteHealth            = "health"
	RouteMetrics           = "metrics"
)

// EndpointSecurityConfig maps routes to their required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	// Auth - Public
	RouteRegister: SecurityPublic,
	RouteLogin:    SecurityPublic,

	// Auth - Access Protected
	RouteMe: SecurityAccess,

	// Catalog - Public
	RouteListProducts:     SecurityPublic,
	RouteGetProduct:       SecurityPublic,
	RouteProductAvailable: SecurityPublic,
	RouteListCategories:   SecurityPublic,

	// Catalog - Staff
	RouteCreateProduct:  SecurityStaff,
	RouteCreateCategory: SecurityStaff,

	// Orders - Access Protected
	RouteCreateOrder: SecurityAccess,
	RouteMyOrders:    SecurityAccess,
	RouteGetOrder:    SecurityAccess,
	RouteCancelOrder: SecurityAccess,

	// Orders - Staff
	RouteListOrders:        SecurityStaff,
	RouteUpdateOrderStatus: SecurityStaff,

	// Operations - Public
	RouteHealth:  SecurityPublic,
	RouteMetrics: SecurityPublic,
}

// GetSecurityLevel returns the security level for a given route
func GetSecurityLevel(route string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[route]; exists {
		return level
	}
	// Default to highest security for unknown routes
	return SecurityStaff
}
