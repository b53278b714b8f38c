package api

import (
	"net/http"
	"strings"

	"recipebox/internal/model"

	"github.com/gin-gonic/gin"
)

const defaultSearchSize = 10

// handleSearchRecipes 按食材搜索菜谱，ingredients 为逗号分隔的列表。
func (s *Server) handleSearchRecipes(c *gin.Context) {
	ingredients := c.QueryArray("ingredients")
	if strings.TrimSpace(strings.Join(ingredients, "")) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Missing ingredients."})
		return
	}
	number := parseQueryInt(c, "number", defaultSearchSize)

	results, err := s.catalog.SearchByIngredients(c.Request.Context(), ingredients, number)
	if err != nil {
		s.respondCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func (s *Server) handleGetRecipe(c *gin.Context) {
	recipe, err := s.catalog.Recipe(c.Request.Context(), model.ParseRecipeID(c.Param("id")))
	if err != nil {
		s.respondCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}
