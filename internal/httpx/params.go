package httpx

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

// PathID reads a positive integer path parameter. On failure it writes the error response.
func PathID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id < 1 {
		FailErr(c, ErrParamInvalid(fmt.Sprintf("invalid %s", name)))
		return 0, false
	}
	return id, true
}
