package main

import (
	"context"
	"log"

	"github.com/weekplate/backend/config"
	"github.com/weekplate/backend/internal/database"
	"github.com/weekplate/backend/internal/models"
	"github.com/weekplate/backend/internal/service"
)

type seedRecipe struct {
	title        string
	description  string
	mealTypes    []string
	dietaryTags  []string
	cuisine      string
	ingredients  []string
	instructions []string
	calories     float64
	protein      float64
	carbs        float64
	fat          float64
	cookMinutes  int
}

var seedRecipes = []seedRecipe{
	{
		title:       "Greek Yogurt Parfait",
		description: "Layered yogurt with berries, honey and granola.",
		mealTypes:   []string{models.MealTypeBreakfast},
		dietaryTags: []string{"vegetarian", "gluten-free"},
		cuisine:     "greek",
		ingredients: []string{"greek yogurt", "mixed berries", "honey", "granola"},
		instructions: []string{
			"Spoon half the yogurt into a glass.",
			"Add berries and granola, then repeat the layers.",
			"Drizzle with honey.",
		},
		calories: 320, protein: 22, carbs: 42, fat: 8, cookMinutes: 5,
	},
	{
		title:       "Spinach Mushroom Omelette",
		description: "Three-egg omelette with sauteed spinach and mushrooms.",
		mealTypes:   []string{models.MealTypeBreakfast},
		dietaryTags: []string{"vegetarian", "gluten-free", "keto"},
		cuisine:     "french",
		ingredients: []string{"eggs", "spinach", "mushrooms", "butter", "salt"},
		instructions: []string{
			"Saute mushrooms and spinach in butter.",
			"Whisk the eggs and pour over the vegetables.",
			"Fold when set and season to taste.",
		},
		calories: 380, protein: 27, carbs: 6, fat: 28, cookMinutes: 15,
	},
	{
		title:       "Overnight Oats with Banana",
		description: "No-cook oats soaked in milk with banana and chia.",
		mealTypes:   []string{models.MealTypeBreakfast},
		dietaryTags: []string{"vegetarian"},
		cuisine:     "american",
		ingredients: []string{"rolled oats", "milk", "banana", "chia seeds", "maple syrup"},
		instructions: []string{
			"Combine oats, milk and chia in a jar.",
			"Refrigerate overnight.",
			"Top with sliced banana and maple syrup.",
		},
		calories: 410, protein: 14, carbs: 68, fat: 10, cookMinutes: 5,
	},
	{
		title:       "Tofu Scramble Wrap",
		description: "Spiced tofu scramble in a whole wheat tortilla.",
		mealTypes:   []string{models.MealTypeBreakfast},
		dietaryTags: []string{"vegan", "dairy-free"},
		cuisine:     "mexican",
		ingredients: []string{"firm tofu", "turmeric", "whole wheat tortilla", "bell pepper", "onion"},
		instructions: []string{
			"Crumble the tofu and fry with turmeric and vegetables.",
			"Warm the tortilla and fill with the scramble.",
		},
		calories: 350, protein: 20, carbs: 38, fat: 14, cookMinutes: 15,
	},
	{
		title:       "Quinoa Chickpea Bowl",
		description: "Lemony quinoa with roasted chickpeas and cucumber.",
		mealTypes:   []string{models.MealTypeLunch, models.MealTypeDinner},
		dietaryTags: []string{"vegan", "gluten-free", "dairy-free"},
		cuisine:     "mediterranean",
		ingredients: []string{"quinoa", "chickpeas", "cucumber", "olive oil", "lemon", "parsley"},
		instructions: []string{
			"Cook quinoa and let it cool slightly.",
			"Roast chickpeas until crisp.",
			"Toss everything with olive oil and lemon juice.",
		},
		calories: 520, protein: 18, carbs: 74, fat: 17, cookMinutes: 30,
	},
	{
		title:       "Grilled Chicken Caesar Salad",
		description: "Romaine, grilled chicken and shaved parmesan.",
		mealTypes:   []string{models.MealTypeLunch},
		dietaryTags: []string{},
		cuisine:     "american",
		ingredients: []string{"chicken breast", "romaine", "parmesan", "caesar dressing", "croutons"},
		instructions: []string{
			"Grill the chicken and slice it.",
			"Toss romaine with dressing and croutons.",
			"Top with chicken and parmesan.",
		},
		calories: 480, protein: 38, carbs: 22, fat: 26, cookMinutes: 25,
	},
	{
		title:       "Lentil Soup",
		description: "Hearty red lentil soup with carrots and cumin.",
		mealTypes:   []string{models.MealTypeLunch, models.MealTypeDinner},
		dietaryTags: []string{"vegan", "gluten-free", "dairy-free"},
		cuisine:     "turkish",
		ingredients: []string{"red lentils", "carrot", "onion", "cumin", "vegetable stock"},
		instructions: []string{
			"Soften onion and carrot in a pot.",
			"Add lentils, cumin and stock.",
			"Simmer until the lentils break down, then blend.",
		},
		calories: 390, protein: 21, carbs: 60, fat: 6, cookMinutes: 35,
	},
	{
		title:       "Tuna Nicoise Salad",
		description: "Seared tuna with green beans, potato and olives.",
		mealTypes:   []string{models.MealTypeLunch},
		dietaryTags: []string{"pescatarian", "gluten-free", "dairy-free"},
		cuisine:     "french",
		ingredients: []string{"tuna steak", "green beans", "baby potatoes", "olives", "egg", "vinaigrette"},
		instructions: []string{
			"Boil potatoes, beans and egg.",
			"Sear the tuna briefly on both sides.",
			"Arrange on a plate and dress.",
		},
		calories: 510, protein: 40, carbs: 34, fat: 23, cookMinutes: 30,
	},
	{
		title:       "Beef Stir-Fry with Broccoli",
		description: "Flank steak and broccoli in a ginger soy glaze.",
		mealTypes:   []string{models.MealTypeDinner},
		dietaryTags: []string{"dairy-free"},
		cuisine:     "chinese",
		ingredients: []string{"flank steak", "broccoli", "soy sauce", "ginger", "garlic", "rice"},
		instructions: []string{
			"Sear the beef in a hot wok and set aside.",
			"Stir-fry broccoli with ginger and garlic.",
			"Return the beef, add the sauce and serve over rice.",
		},
		calories: 620, protein: 42, carbs: 58, fat: 24, cookMinutes: 25,
	},
	{
		title:       "Baked Salmon with Sweet Potato",
		description: "Roast salmon fillet with sweet potato wedges.",
		mealTypes:   []string{models.MealTypeDinner},
		dietaryTags: []string{"pescatarian", "gluten-free", "dairy-free"},
		cuisine:     "american",
		ingredients: []string{"salmon fillet", "sweet potato", "olive oil", "dill", "lemon"},
		instructions: []string{
			"Roast sweet potato wedges until golden.",
			"Bake the salmon with dill and lemon.",
		},
		calories: 580, protein: 36, carbs: 44, fat: 28, cookMinutes: 35,
	},
	{
		title:       "Vegan Chili",
		description: "Smoky three-bean chili with peppers.",
		mealTypes:   []string{models.MealTypeDinner},
		dietaryTags: []string{"vegan", "gluten-free", "dairy-free"},
		cuisine:     "mexican",
		ingredients: []string{"kidney beans", "black beans", "pinto beans", "tomatoes", "smoked paprika", "bell pepper"},
		instructions: []string{
			"Soften pepper and onion in a pot.",
			"Add beans, tomatoes and spices.",
			"Simmer for thirty minutes.",
		},
		calories: 450, protein: 24, carbs: 72, fat: 8, cookMinutes: 45,
	},
	{
		title:       "Chicken Tikka Masala",
		description: "Chicken in a spiced tomato cream sauce with rice.",
		mealTypes:   []string{models.MealTypeDinner},
		dietaryTags: []string{"gluten-free"},
		cuisine:     "indian",
		ingredients: []string{"chicken thigh", "yogurt", "tomato puree", "garam masala", "cream", "basmati rice"},
		instructions: []string{
			"Marinate the chicken in yogurt and spices.",
			"Grill, then simmer in the tomato cream sauce.",
			"Serve over basmati rice.",
		},
		calories: 680, protein: 40, carbs: 62, fat: 30, cookMinutes: 50,
	},
	{
		title:       "Apple with Peanut Butter",
		description: "Sliced apple with a spoonful of peanut butter.",
		mealTypes:   []string{models.MealTypeSnack},
		dietaryTags: []string{"vegan", "gluten-free", "dairy-free"},
		cuisine:     "american",
		ingredients: []string{"apple", "peanut butter"},
		instructions: []string{
			"Slice the apple and serve with peanut butter.",
		},
		calories: 190, protein: 5, carbs: 27, fat: 8, cookMinutes: 2,
	},
	{
		title:       "Hummus and Carrot Sticks",
		description: "Classic hummus with fresh carrot sticks.",
		mealTypes:   []string{models.MealTypeSnack},
		dietaryTags: []string{"vegan", "gluten-free", "dairy-free"},
		cuisine:     "middle eastern",
		ingredients: []string{"hummus", "carrots"},
		instructions: []string{
			"Peel the carrots, cut into sticks and serve with hummus.",
		},
		calories: 160, protein: 6, carbs: 20, fat: 7, cookMinutes: 5,
	},
	{
		title:       "Trail Mix",
		description: "Nuts, seeds and dried fruit.",
		mealTypes:   []string{models.MealTypeSnack},
		dietaryTags: []string{"vegan", "gluten-free", "dairy-free"},
		cuisine:     "american",
		ingredients: []string{"almonds", "walnuts", "pumpkin seeds", "raisins"},
		instructions: []string{
			"Mix everything in a bowl.",
		},
		calories: 210, protein: 7, carbs: 18, fat: 13, cookMinutes: 1,
	},
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	catalog := service.NewCatalogService(db)
	ctx := context.Background()

	created := 0
	for _, seed := range seedRecipes {
		var count int64
		if err := db.Model(&models.Recipe{}).Where("title = ?", seed.title).Count(&count).Error; err != nil {
			log.Fatalf("Failed to check for existing recipe %q: %v", seed.title, err)
		}
		if count > 0 {
			continue
		}

		recipe := seed.toModel()
		if _, err := catalog.CreateRecipe(ctx, recipe); err != nil {
			log.Fatalf("Failed to create recipe %q: %v", seed.title, err)
		}
		created++
	}

	log.Printf("Seeded %d recipes (%d already present)", created, len(seedRecipes)-created)
}

func (s seedRecipe) toModel() *models.Recipe {
	calories, protein, carbs, fat := s.calories, s.protein, s.carbs, s.fat
	return &models.Recipe{
		Title:        s.title,
		Description:  s.description,
		MealTypes:    models.JSONBStringArray(s.mealTypes),
		DietaryTags:  models.JSONBStringArray(s.dietaryTags),
		Cuisine:      s.cuisine,
		Ingredients:  models.JSONBStringArray(s.ingredients),
		Instructions: models.JSONBStringArray(s.instructions),
		Calories:     &calories,
		Protein:      &protein,
		Carbs:        &carbs,
		Fat:          &fat,
		CookMinutes:  s.cookMinutes,
		Active:       true,
	}
}
