package handler

import (
	"net/http"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"labreserve/internal/auth"
)

// actorFromContext extracts the authenticated actor from the JWT middleware.
func actorFromContext(c echo.Context) (auth.Actor, error) {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return auth.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}
	claims, ok := token.Claims.(*auth.Claims)
	if !ok {
		return auth.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "invalid token claims")
	}
	return claims.Actor(), nil
}

// pathID parses the :id path parameter.
func pathID(c echo.Context) (uint, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return uint(id), nil
}

// queryUint parses an optional numeric query parameter, ignoring garbage.
func queryUint(c echo.Context, name string) uint {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil || v < 0 {
		return 0
	}
	return uint(v)
}
