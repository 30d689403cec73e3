package catalog

import "course-portal/internal/domain"

// Default returns the portal's built-in catalog.
func Default() *Catalog {
	return New(defaultCourses())
}

func defaultCourses() []domain.Course {
	return []domain.Course{
		{
			ID:    "welder",
			Title: "Welder",
			Lessons: []domain.Lesson{
				{
					ID:        1,
					Title:     "Welding safety",
					Video:     "/videos/welder/1.mp4",
					Materials: "Protective equipment, ventilation and fire safety at the workstation.",
					Test: []domain.Question{
						{ID: 1, Question: "What protects the eyes from the welding arc?", Options: []string{"Sunglasses", "A welding mask with a filter", "Nothing"}, Correct: 1},
						{ID: 2, Question: "Where should flammable materials be kept?", Options: []string{"Next to the workpiece", "Away from the work area", "On the welding table"}, Correct: 1},
					},
				},
				{
					ID:        2,
					Title:     "Welding equipment",
					Video:     "/videos/welder/2.mp4",
					Materials: "Power sources, electrode holders and ground clamps.",
					Test: []domain.Question{
						{ID: 1, Question: "What does the ground clamp close?", Options: []string{"The welding circuit", "The gas valve", "The cooling loop"}, Correct: 0},
					},
				},
				{
					ID:        3,
					Title:     "Your first weld",
					Video:     "/videos/welder/3.mp4",
					Materials: "Striking the arc, holding the angle and travel speed.",
				},
			},
		},
		{
			ID:    "manager",
			Title: "Manager",
			Lessons: []domain.Lesson{
				{
					ID:        1,
					Title:     "Planning work",
					Video:     "/videos/manager/1.mp4",
					Materials: "Goals, milestones and weekly planning.",
					Test: []domain.Question{
						{ID: 1, Question: "What should a goal be?", Options: []string{"Vague", "Measurable", "Secret"}, Correct: 1},
						{ID: 2, Question: "How often is a weekly plan reviewed?", Options: []string{"Never", "Once a year", "Every week"}, Correct: 2},
					},
				},
				{
					ID:        2,
					Title:     "Leading a team",
					Video:     "/videos/manager/2.mp4",
					Materials: "Delegation, feedback and one-on-one meetings.",
				},
			},
		},
		{
			ID:    "seller",
			Title: "Seller",
			Lessons: []domain.Lesson{
				{
					ID:        1,
					Title:     "Meeting the customer",
					Video:     "/videos/seller/1.mp4",
					Materials: "Greeting, open questions and active listening.",
					Test: []domain.Question{
						{ID: 1, Question: "Which question is open?", Options: []string{"Do you need help?", "What are you looking for today?", "Is that all?"}, Correct: 1},
					},
				},
				{
					ID:        2,
					Title:     "Presenting a product",
					Video:     "/videos/seller/2.mp4",
					Materials: "Features versus benefits.",
				},
				{
					ID:        3,
					Title:     "Closing the sale",
					Video:     "/videos/seller/3.mp4",
					Materials: "Handling objections and asking for the order.",
					Test: []domain.Question{
						{ID: 1, Question: "What is an objection?", Options: []string{"A refusal to talk", "A concern to address", "A complaint to ignore"}, Correct: 1},
						{ID: 2, Question: "When do you ask for the order?", Options: []string{"After the objections are handled", "Before greeting", "Never"}, Correct: 0},
						{ID: 3, Question: "What follows a sale?", Options: []string{"Nothing", "Follow-up with the customer", "Another greeting"}, Correct: 1},
					},
				},
			},
		},
	}
}
