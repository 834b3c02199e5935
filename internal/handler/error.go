package handler

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
)

func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	switch e := err.(type) {
	case *echo.HTTPError:
		if e.Internal != nil {
			log.Printf(
				"handler internal error %s [%d]: %+v\n",
				c.Request().URL.Path, e.Code, e.Internal,
			)
		}
		if err := c.JSON(e.Code, echo.Map{"message": e.Message}); err != nil {
			log.Printf("err returning json: %+v\n", err)
		}
	default:
		log.Printf("handler error %s: %+v\n", c.Request().URL.Path, e)
		if err := c.JSON(
			http.StatusInternalServerError,
			echo.Map{"message": "something went terribly wrong"},
		); err != nil {
			log.Printf("err returning json: %+v\n", err)
		}
	}
}
