package handler

import (
    "errors"
    "strconv"

    "github.com/labstack/echo/v4"
)

// getUserID extracts the user_id placed in the context by the JWT middleware
// and converts it to uint64.  The claim arrives as float64 after JSON
// decoding, but other numeric shapes are tolerated.
func getUserID(c echo.Context) (uint64, error) {
    v := c.Get("user_id")
    switch t := v.(type) {
    case uint64:
        return t, nil
    case int:
        return uint64(t), nil
    case int64:
        return uint64(t), nil
    case float64:
        return uint64(t), nil
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil {
            return n, nil
        }
    }
    return 0, errors.New("invalid user_id in context")
}

// parseLimit reads a positive integer query parameter, falling back to def
// and clamping at max.
func parseLimit(c echo.Context, name string, def, max int) int {
    raw := c.QueryParam(name)
    if raw == "" {
        return def
    }
    n, err := strconv.Atoi(raw)
    if err != nil || n < 1 {
        return def
    }
    if n > max {
        return max
    }
    return n
}
