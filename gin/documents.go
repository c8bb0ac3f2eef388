package gin

import (
	"net/http"

	"github.com/fwojciec/docchat"
	dcjson "github.com/fwojciec/docchat/json"
	"github.com/gin-gonic/gin"
)

func (s *Server) handleDocuments(c *gin.Context) {
	var docs []docchat.Document
	if s.documents != nil {
		var err error
		docs, err = s.documents.Documents(c.Request.Context())
		if err != nil {
			s.reject(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, dcjson.NewDocumentList(docs))
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"sessions": s.sessions.len(),
	})
}
