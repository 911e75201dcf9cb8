package server

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the expert system API on rg.
//
// Endpoints:
//
//	GET    /knowledge-bases            - List stored knowledge bases
//	GET    /knowledge-base/:filename   - Load one as the current knowledge base
//	POST   /knowledge-base/:filename   - Save the body, or the current state
//	DELETE /knowledge-base/:filename   - Delete a stored knowledge base
//	POST   /fact                       - Add or overwrite a fact
//	PUT    /fact                       - Rename and re-weight a fact
//	DELETE /fact/*fact                 - Delete a fact
//	POST   /rule                       - Append a rule
//	PUT    /rule/:index                - Replace a rule
//	DELETE /rule/:index                - Delete a rule
//	POST   /infer                      - Run forward chaining
//	POST   /query                      - Match free text against the rules
//	GET    /current-state              - Facts and rules
//	POST   /clear                      - Drop every fact and rule
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	rg.GET("/knowledge-bases", handlers.HandleListKnowledgeBases)
	rg.GET("/knowledge-base/:filename", handlers.HandleLoadKnowledgeBase)
	rg.POST("/knowledge-base/:filename", handlers.HandleSaveKnowledgeBase)
	rg.DELETE("/knowledge-base/:filename", handlers.HandleDeleteKnowledgeBase)

	rg.POST("/fact", handlers.HandleAddFact)
	rg.PUT("/fact", handlers.HandleEditFact)
	rg.DELETE("/fact/*fact", handlers.HandleDeleteFact)

	rg.POST("/rule", handlers.HandleAddRule)
	rg.PUT("/rule/:index", handlers.HandleEditRule)
	rg.DELETE("/rule/:index", handlers.HandleDeleteRule)

	rg.POST("/infer", handlers.HandleInfer)
	rg.POST("/query", handlers.HandleQuery)

	rg.GET("/current-state", handlers.HandleCurrentState)
	rg.POST("/clear", handlers.HandleClear)
}
