package handlers

import "github.com/gofiber/fiber/v2"

// Routers is what handlers mount their routes on. Customer routes attach Auth per group or per
// route, since middleware given to an unprefixed fiber group applies to every route below it.
type Routers struct {
	API   fiber.Router
	Auth  fiber.Handler
	Admin fiber.Router // already guarded by Auth and the admin role
}

// orNext returns h, or a handler that just continues when h is nil.
func orNext(h fiber.Handler) fiber.Handler {
	if h != nil {
		return h
	}
	return func(c *fiber.Ctx) error { return c.Next() }
}
