package server

// Route maps an inbound path prefix to the routing key of the service that
// owns it. This table is the gateway's single routing policy; prefixes not
// listed here are a 404, never a guess.
type Route struct {
	Prefix     string
	RoutingKey string
}

// routeTable lists every service behind the gateway.
var routeTable = []Route{
	{Prefix: "/api/auth", RoutingKey: "auth.request"},
	{Prefix: "/api/recipes", RoutingKey: "recipe.request"},
	{Prefix: "/api/account", RoutingKey: "account.request"},
}
