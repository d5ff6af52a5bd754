package admin

import "github.com/gin-gonic/gin"

// Формат ответов на AJAX-запись: фронт смотрит на result и либо уходит
// по url, либо раскладывает fields по инпутам.

func successJSON(c *gin.Context, message, url string) {
	c.JSON(200, gin.H{
		"result":     "ok",
		"message":    message,
		"url":        url,
		"redirected": url != "",
	})
}

func errorJSON(c *gin.Context, status int, message string, fields map[string][]string) {
	body := gin.H{
		"result":  "error",
		"message": message,
	}
	if len(fields) > 0 {
		body["fields"] = fields
	}
	c.JSON(status, body)
}
